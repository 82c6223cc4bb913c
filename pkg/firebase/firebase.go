// Package firebase resolves comment authors from Firebase ID tokens.
//
// Comments are owned by integer user ids, so a Firebase account can only
// write comments once its token carries the numeric user_id custom claim
// set by the account service.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// UserIDClaim is the custom claim holding the comment author's id.
const UserIDClaim = "user_id"

// ErrNoUserID is returned for verified tokens without a usable user_id claim.
var ErrNoUserID = errors.New("id token carries no user_id claim")

// TokenVerifier is satisfied by *auth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Authenticator verifies ID tokens and returns the comment author's id.
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator creates an Authenticator over verifier.
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Authenticate verifies idToken and reads its user_id claim.
func (a *Authenticator) Authenticate(ctx context.Context, idToken string) (int64, error) {
	token, err := a.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return 0, fmt.Errorf("verify id token: %w", err)
	}
	userID, err := UserID(token)
	if err != nil {
		return 0, fmt.Errorf("firebase uid %s: %w", token.UID, err)
	}
	return userID, nil
}

// UserID extracts the positive integer user_id claim from a verified token.
// JSON numbers decode as float64; numeric strings are accepted as well.
func UserID(token *auth.Token) (int64, error) {
	var id int64
	switch v := token.Claims[UserIDClaim].(type) {
	case float64:
		id = int64(v)
		if float64(id) != v {
			return 0, fmt.Errorf("%s claim %v is not an integer", UserIDClaim, v)
		}
	case int64:
		id = v
	case int:
		id = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s claim: %w", UserIDClaim, err)
		}
		id = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s claim: %w", UserIDClaim, err)
		}
		id = n
	case nil:
		return 0, ErrNoUserID
	default:
		return 0, fmt.Errorf("%s claim has unsupported type %T", UserIDClaim, v)
	}
	if id <= 0 {
		return 0, ErrNoUserID
	}
	return id, nil
}

// InitAuthenticator loads the service account at credentialsPath and returns
// an Authenticator backed by the Firebase auth client.
func InitAuthenticator(ctx context.Context, credentialsPath string) (*Authenticator, error) {
	if credentialsPath == "" {
		return nil, errors.New("FIREBASE_CREDENTIALS_PATH not provided")
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file %s: %w", credentialsPath, err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	log.Println("Firebase auth client initialized, resolving comment authors from the user_id claim.")
	return NewAuthenticator(client), nil
}
