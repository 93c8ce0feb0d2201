package router

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/contactkeeper/internal/auth"
	"github.com/patric-chuzhbe/contactkeeper/internal/db/memorystorage"
	"github.com/patric-chuzhbe/contactkeeper/internal/ipchecker"
	"github.com/patric-chuzhbe/contactkeeper/internal/logger"
	"github.com/patric-chuzhbe/contactkeeper/internal/mockstorage"
	"github.com/patric-chuzhbe/contactkeeper/internal/models"
	"github.com/patric-chuzhbe/contactkeeper/internal/service"
	"github.com/patric-chuzhbe/contactkeeper/internal/validation"
)

const testTrustedSubnet = "127.0.0.0/8"

var testSecret = []byte("router-test-secret")

type testStorage interface {
	CreateUser(ctx context.Context, usr *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
	InsertContact(ctx context.Context, contact *models.Contact) error
	GetContactsByOwner(ctx context.Context, ownerID string) ([]models.Contact, error)
	GetContactByID(ctx context.Context, contactID string) (*models.Contact, error)
	UpdateContact(ctx context.Context, contact *models.Contact) error
	DeleteContact(ctx context.Context, contactID string) error
	GetNumberOfContacts(ctx context.Context) (int64, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	Ping(ctx context.Context) error
	Close() error
}

type initOption func(*initOptions)

type initOptions struct {
	mockStorage testStorage
	tokenTTL    time.Duration
}

func withMockStorage(db testStorage) initOption {
	return func(options *initOptions) {
		options.mockStorage = db
	}
}

func withTokenTTL(ttl time.Duration) initOption {
	return func(options *initOptions) {
		options.tokenTTL = ttl
	}
}

func setupTestRouter(t *testing.T, optionsProto ...initOption) (*httptest.Server, testStorage, *chi.Mux) {
	options := &initOptions{
		tokenTTL: time.Hour,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var db testStorage = options.mockStorage
	if db == nil {
		memory, err := memorystorage.New()
		require.NoError(t, err)
		db = memory
	}

	tokens := auth.NewTokenService(testSecret, options.tokenTTL)

	ipChecker, err := ipchecker.New(testTrustedSubnet)
	require.NoError(t, err)

	theRouter := New(
		auth.New(tokens),
		ipChecker,
		service.New(db, tokens, validation.New()),
	)

	require.NoError(t, logger.Init("debug"))

	server := httptest.NewServer(theRouter)
	t.Cleanup(server.Close)

	return server, db, theRouter
}

func register(t *testing.T, serverURL string, email string) string {
	t.Helper()

	var token models.TokenResponse
	resp, err := resty.New().R().
		SetBody(models.RegisterRequest{Name: "User", Email: email, Password: "secret123"}).
		SetResult(&token).
		Post(serverURL + "/api/users")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())
	require.NotEmpty(t, token.Token)

	return token.Token
}

func createContact(t *testing.T, serverURL, token string, request models.CreateContactRequest) models.Contact {
	t.Helper()

	var contact models.Contact
	resp, err := resty.New().R().
		SetHeader(auth.TokenHeader, token).
		SetBody(request).
		SetResult(&contact).
		Post(serverURL + "/api/contacts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	return contact
}

func TestGetAPI(t *testing.T) {
	server, _, _ := setupTestRouter(t)

	for _, path := range []string{"/api", "/api/"} {
		resp, err := resty.New().R().Get(server.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.JSONEq(t, `{"msg":"Welcome to the Contact Manager API"}`, resp.String())
	}
}

func TestPostUsers(t *testing.T) {
	server, db, _ := setupTestRouter(t)

	type tExpectedResponse struct {
		code int
		body *regexp.Regexp
	}
	type tTestCase struct {
		name             string
		body             string
		expectedResponse tExpectedResponse
	}
	testCases := []tTestCase{
		{
			name: "positive",
			body: `{"name":"Ann","email":"ann@example.com","password":"secret123"}`,
			expectedResponse: tExpectedResponse{
				http.StatusOK,
				regexp.MustCompile(`\{\s*"token"\s*:\s*"[\w-]+\.[\w-]+\.[\w-]+"\s*\}`),
			},
		},
		{
			name: "duplicate email",
			body: `{"name":"Ann again","email":"ann@example.com","password":"secret123"}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`"msg"\s*:\s*"User already exists"`),
			},
		},
		{
			name: "short password",
			body: `{"name":"Bob","email":"bob@example.com","password":"12345"}`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`"errors"\s*:\s*\[\s*\{\s*"msg"\s*:\s*"Please enter a password with 6 or more characters"`),
			},
		},
		{
			name: "malformed JSON",
			body: `{"name":`,
			expectedResponse: tExpectedResponse{
				http.StatusBadRequest,
				regexp.MustCompile(`"msg"\s*:\s*"Malformed request body"`),
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader("Content-Type", "application/json").
				SetBody(testCase.body).
				Post(server.URL + "/api/users")
			require.NoError(t, err, "error making HTTP request")

			assert.Equal(t, testCase.expectedResponse.code, resp.StatusCode(), "Response code didn't match expected value")
			assert.NotNil(
				t,
				testCase.expectedResponse.body.FindIndex(resp.Body()),
				fmt.Sprintf("The response body %s should match %s", resp.String(), testCase.expectedResponse.body.String()),
			)
		})
	}

	count, err := db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "the duplicate registration must not create a second user")
}

func TestPostAuthAndGetAuth(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token := register(t, server.URL, "ann@example.com")

	t.Run("current user", func(t *testing.T) {
		resp, err := resty.New().R().
			SetHeader(auth.TokenHeader, token).
			Get(server.URL + "/api/auth")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())

		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body(), &body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.NotContains(t, body, "password")
		assert.NotEmpty(t, body["_id"])
	})

	type tTestCase struct {
		name         string
		body         models.LoginRequest
		expectedCode int
		expectedMsg  string
	}
	testCases := []tTestCase{
		{
			name:         "valid credentials",
			body:         models.LoginRequest{Email: "ann@example.com", Password: "secret123"},
			expectedCode: http.StatusOK,
		},
		{
			name:         "wrong password",
			body:         models.LoginRequest{Email: "ann@example.com", Password: "wrong-password"},
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Invalid credentials",
		},
		{
			name:         "unknown email",
			body:         models.LoginRequest{Email: "nobody@example.com", Password: "secret123"},
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "Invalid credentials",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var message models.MessageResponse
			var tokenResponse models.TokenResponse
			resp, err := resty.New().R().
				SetBody(testCase.body).
				SetResult(&tokenResponse).
				SetError(&message).
				Post(server.URL + "/api/auth")
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			if testCase.expectedMsg != "" {
				assert.Equal(t, testCase.expectedMsg, message.Msg)
				return
			}
			assert.NotEmpty(t, tokenResponse.Token)
		})
	}
}

func TestGetAuthForDeletedUser(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token, err := auth.NewTokenService(testSecret, time.Hour).Issue(uuid.New().String())
	require.NoError(t, err)

	resp, err := resty.New().R().SetHeader(auth.TokenHeader, token).Get(server.URL + "/api/auth")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"User not found"}`, resp.String())
}

func TestAuthGate(t *testing.T) {
	server, _, _ := setupTestRouter(t)

	expired, err := auth.NewTokenService(testSecret, -time.Minute).Issue(uuid.New().String())
	require.NoError(t, err)
	foreign, err := auth.NewTokenService([]byte("another-secret"), time.Hour).Issue(uuid.New().String())
	require.NoError(t, err)

	type tTestCase struct {
		name        string
		token       string
		expectedMsg string
	}
	testCases := []tTestCase{
		{name: "no token", token: "", expectedMsg: "No token, authorisation denied"},
		{name: "garbage", token: "not.a.token", expectedMsg: "Token is invalid"},
		{name: "expired", token: expired, expectedMsg: "Token is invalid"},
		{name: "signed with another key", token: foreign, expectedMsg: "Token is invalid"},
	}

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/auth"},
		{http.MethodGet, "/api/contacts"},
		{http.MethodPost, "/api/contacts"},
		{http.MethodPut, "/api/contacts/" + uuid.New().String()},
		{http.MethodDelete, "/api/contacts/" + uuid.New().String()},
	}

	for _, testCase := range testCases {
		for _, route := range routes {
			t.Run(testCase.name+" "+route.method+" "+route.path, func(t *testing.T) {
				req := resty.New().R().SetBody(`{"name":"x"}`).SetHeader("Content-Type", "application/json")
				if testCase.token != "" {
					req.SetHeader(auth.TokenHeader, testCase.token)
				}
				resp, err := req.Execute(route.method, server.URL+route.path)
				require.NoError(t, err)

				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
				assert.JSONEq(t, fmt.Sprintf(`{"msg":%q}`, testCase.expectedMsg), resp.String())
			})
		}
	}
}

func TestContactsOwnership(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	tokenA := register(t, server.URL, "a@example.com")
	tokenB := register(t, server.URL, "b@example.com")

	contact := createContact(t, server.URL, tokenA, models.CreateContactRequest{
		Name:  "Carol",
		Email: "carol@example.com",
		Phone: "111",
	})
	assert.Equal(t, models.ContactTypePersonal, contact.Type)
	assert.NotEmpty(t, contact.ID)

	t.Run("B lists nothing", func(t *testing.T) {
		resp, err := resty.New().R().SetHeader(auth.TokenHeader, tokenB).Get(server.URL + "/api/contacts")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
		assert.JSONEq(t, `[]`, resp.String())
	})

	type tTestCase struct {
		name         string
		method       string
		path         string
		expectedCode int
		expectedMsg  string
	}
	testCases := []tTestCase{
		{
			name:         "B updates A's contact",
			method:       http.MethodPut,
			path:         "/api/contacts/" + contact.ID,
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "Not authorized",
		},
		{
			name:         "B deletes A's contact",
			method:       http.MethodDelete,
			path:         "/api/contacts/" + contact.ID,
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "Not authorized",
		},
		{
			name:         "B updates a missing contact",
			method:       http.MethodPut,
			path:         "/api/contacts/" + uuid.New().String(),
			expectedCode: http.StatusNotFound,
			expectedMsg:  "Contact not found",
		},
		{
			name:         "B deletes a malformed id",
			method:       http.MethodDelete,
			path:         "/api/contacts/not-an-id",
			expectedCode: http.StatusNotFound,
			expectedMsg:  "Contact not found",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := resty.New().R().
				SetHeader(auth.TokenHeader, tokenB).
				SetBody(`{"name":"Hijacked"}`).
				SetHeader("Content-Type", "application/json").
				Execute(testCase.method, server.URL+testCase.path)
			require.NoError(t, err)

			assert.Equal(t, testCase.expectedCode, resp.StatusCode())
			assert.JSONEq(t, fmt.Sprintf(`{"msg":%q}`, testCase.expectedMsg), resp.String())
		})
	}

	t.Run("A still sees the untouched contact", func(t *testing.T) {
		var contacts []models.Contact
		resp, err := resty.New().R().
			SetHeader(auth.TokenHeader, tokenA).
			SetResult(&contacts).
			Get(server.URL + "/api/contacts")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		require.Len(t, contacts, 1)
		assert.Equal(t, "Carol", contacts[0].Name)
	})
}

func TestPutContactPartialUpdate(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token := register(t, server.URL, "a@example.com")
	contact := createContact(t, server.URL, token, models.CreateContactRequest{
		Name:  "Carol",
		Email: "carol@example.com",
		Phone: "111",
		Type:  models.ContactTypeProfessional,
	})

	var updated models.Contact
	resp, err := resty.New().R().
		SetHeader(auth.TokenHeader, token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"phone":"222"}`).
		SetResult(&updated).
		Put(server.URL + "/api/contacts/" + contact.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode(), resp.String())

	assert.Equal(t, contact.ID, updated.ID)
	assert.Equal(t, "Carol", updated.Name)
	assert.Equal(t, "carol@example.com", updated.Email)
	assert.Equal(t, "222", updated.Phone)
	assert.Equal(t, models.ContactTypeProfessional, updated.Type)

	resp, err = resty.New().R().
		SetHeader(auth.TokenHeader, token).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"type":"family"}`).
		Put(server.URL + "/api/contacts/" + contact.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode())
	assert.Contains(t, resp.String(), "Type must be personal or professional")
}

func TestDeleteContact(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token := register(t, server.URL, "a@example.com")
	contact := createContact(t, server.URL, token, models.CreateContactRequest{Name: "Carol"})

	resp, err := resty.New().R().SetHeader(auth.TokenHeader, token).Delete(server.URL + "/api/contacts/" + contact.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"Contact removed"}`, resp.String())

	resp, err = resty.New().R().SetHeader(auth.TokenHeader, token).Delete(server.URL + "/api/contacts/" + contact.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestGetContactsNewestFirstUnderInterleaving(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	tokenA := register(t, server.URL, "a@example.com")
	tokenB := register(t, server.URL, "b@example.com")

	var expected []string
	for i := 0; i < 4; i++ {
		contact := createContact(t, server.URL, tokenA, models.CreateContactRequest{Name: fmt.Sprintf("a%d", i)})
		expected = append([]string{contact.ID}, expected...)
		createContact(t, server.URL, tokenB, models.CreateContactRequest{Name: fmt.Sprintf("b%d", i)})
	}

	var contacts []models.Contact
	resp, err := resty.New().R().
		SetHeader(auth.TokenHeader, tokenA).
		SetResult(&contacts).
		Get(server.URL + "/api/contacts")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())

	actual := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		actual = append(actual, contact.ID)
	}
	assert.Equal(t, expected, actual)
}

func TestConcurrentRegistrationOfSameEmail(t *testing.T) {
	server, db, _ := setupTestRouter(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := resty.New().R().
				SetBody(models.RegisterRequest{Name: "Ann", Email: "ann@example.com", Password: "secret123"}).
				Post(server.URL + "/api/users")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := db.GetNumberOfUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGzip(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token := register(t, server.URL, "a@example.com")

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(`{"name":"Zipped"}`))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	request, err := http.NewRequest(http.MethodPost, server.URL+"/api/contacts", &buf)
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set("Accept-Encoding", "gzip")
	request.Header.Set(auth.TokenHeader, token)

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	require.Equal(t, http.StatusOK, response.StatusCode)
	require.Equal(t, "gzip", response.Header.Get("Content-Encoding"))

	reader, err := gzip.NewReader(response.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)

	var contact models.Contact
	require.NoError(t, json.Unmarshal(body, &contact))
	assert.Equal(t, "Zipped", contact.Name)
}

func TestGetPing(t *testing.T) {
	t.Run("storage is up", func(t *testing.T) {
		server, _, _ := setupTestRouter(t)

		resp, err := resty.New().R().Get(server.URL + "/api/ping")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode())
	})

	t.Run("storage is down", func(t *testing.T) {
		db := new(mockstorage.StorageMock)
		db.On("Ping", mock.Anything).Return(errors.New("connection refused"))
		server, _, _ := setupTestRouter(t, withMockStorage(db))

		resp, err := resty.New().R().Get(server.URL + "/api/ping")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	})
}

func TestGetInternalStats(t *testing.T) {
	server, _, _ := setupTestRouter(t)
	token := register(t, server.URL, "a@example.com")
	createContact(t, server.URL, token, models.CreateContactRequest{Name: "Carol"})

	t.Run("trusted client", func(t *testing.T) {
		var stats models.InternalStatsResponse
		resp, err := resty.New().R().SetResult(&stats).Get(server.URL + "/api/internal/stats")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode())
		assert.Equal(t, models.InternalStatsResponse{Users: 1, Contacts: 1}, stats)
	})

	t.Run("untrusted client", func(t *testing.T) {
		resp, err := resty.New().R().SetHeader("X-Real-IP", "203.0.113.5").Get(server.URL + "/api/internal/stats")
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode())
	})
}

func TestInternalErrorsAreHidden(t *testing.T) {
	db := new(mockstorage.StorageMock)
	db.On("GetContactsByOwner", mock.Anything, mock.Anything).Return(nil, errors.New("secret detail"))
	server, _, _ := setupTestRouter(t, withMockStorage(db))

	token, err := auth.NewTokenService(testSecret, time.Hour).Issue(uuid.New().String())
	require.NoError(t, err)

	resp, err := resty.New().R().SetHeader(auth.TokenHeader, token).Get(server.URL + "/api/contacts")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"Server Error"}`, resp.String())
}

func TestTokenExpiresAfterTTL(t *testing.T) {
	server, _, _ := setupTestRouter(t, withTokenTTL(time.Second))
	token := register(t, server.URL, "a@example.com")

	resp, err := resty.New().R().SetHeader(auth.TokenHeader, token).Get(server.URL + "/api/auth")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	time.Sleep(2100 * time.Millisecond)

	resp, err = resty.New().R().SetHeader(auth.TokenHeader, token).Get(server.URL + "/api/auth")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
	assert.JSONEq(t, `{"msg":"Token is invalid"}`, resp.String())
}
