package state

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
)

// DefaultAlertTimeout is used when SetAlert gets a non-positive timeout.
const DefaultAlertTimeout = 5 * time.Second

// Alert types understood by the renderers.
const (
	AlertDanger  = "danger"
	AlertSuccess = "success"
)

type Alert struct {
	ID   string
	Msg  string
	Type string
}

type AlertActionType int

const (
	SetAlert AlertActionType = iota + 1
	RemoveAlert
)

type AlertAction struct {
	Type  AlertActionType
	Alert Alert
	ID    string
}

func ReduceAlerts(state []Alert, action AlertAction) []Alert {
	switch action.Type {
	case SetAlert:
		next := make([]Alert, 0, len(state)+1)
		next = append(next, state...)
		return append(next, action.Alert)

	case RemoveAlert:
		return funk.Filter(state, func(alert Alert) bool {
			return alert.ID != action.ID
		}).([]Alert)
	}

	return state
}

// AlertsContext shows alerts for a limited time. Close must be called to stop pending
// removals.
type AlertsContext struct {
	*Store[[]Alert, AlertAction]

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewAlertsContext() *AlertsContext {
	return &AlertsContext{
		Store:  NewStore([]Alert{}, ReduceAlerts),
		timers: map[string]*time.Timer{},
	}
}

// SetAlert adds an alert and schedules its removal after timeout. It returns the alert ID.
func (a *AlertsContext) SetAlert(msg string, alertType string, timeout time.Duration) string {
	if timeout <= 0 {
		timeout = DefaultAlertTimeout
	}

	id := uuid.New().String()
	a.Dispatch(AlertAction{Type: SetAlert, Alert: Alert{ID: id, Msg: msg, Type: alertType}})

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return id
	}

	a.timers[id] = time.AfterFunc(timeout, func() {
		a.mu.Lock()
		delete(a.timers, id)
		a.mu.Unlock()

		a.Dispatch(AlertAction{Type: RemoveAlert, ID: id})
	})

	return id
}

// RemoveAlert removes the alert right away.
func (a *AlertsContext) RemoveAlert(id string) {
	a.mu.Lock()
	if timer, ok := a.timers[id]; ok {
		timer.Stop()
		delete(a.timers, id)
	}
	a.mu.Unlock()

	a.Dispatch(AlertAction{Type: RemoveAlert, ID: id})
}

// Close cancels every scheduled removal. Alerts already shown stay in the state.
func (a *AlertsContext) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for id, timer := range a.timers {
		timer.Stop()
		delete(a.timers, id)
	}
}
