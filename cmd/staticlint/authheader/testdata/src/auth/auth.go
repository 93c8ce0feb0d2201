package auth

const TokenHeader = "x-auth-token"
