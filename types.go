package authflow

import (
	"github.com/ChesterZhangz/authflow/credstore"
	"github.com/ChesterZhangz/authflow/token"
)

// Credential is the access/refresh token pair held by the credential store.
//
//	Docs: docs/credstore.md
type Credential = credstore.Credential

// CredentialStore is the interface the client reads credentials through.
// The refresh coordinator is its only writer; every other component treats
// it as read-only.
//
//	Docs: docs/credstore.md
type CredentialStore = credstore.Store

// TokenState classifies the freshness of an access token.
//
//	Docs: docs/token.md
type TokenState = token.State

const (
	// TokenValid is an exported constant or variable used by the refresh client.
	TokenValid = token.StateValid
	// TokenExpiringSoon is an exported constant or variable used by the refresh client.
	TokenExpiringSoon = token.StateExpiringSoon
	// TokenExpired is an exported constant or variable used by the refresh client.
	TokenExpired = token.StateExpired
)
