package a

import "net/http"

const header = "x-auth-token" // want `use auth.TokenHeader instead of the literal "x-auth-token"`

func setToken(req *http.Request, token string) {
	req.Header.Set("X-Auth-Token", token) // want `use auth.TokenHeader instead of the literal "X-Auth-Token"`
	req.Header.Set(header, token)
	req.Header.Set("Content-Type", "application/json")
}

var raw = `x-auth-token` // want `use auth.TokenHeader instead of the literal "x-auth-token"`
