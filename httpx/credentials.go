package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshTokenTTL = 8760 * time.Hour
	storeTimeout    = 10 * time.Second
)

var errRefresh = errors.New("could not refresh")

// NewBearerServer issues admin tokens for credentials kept in the document store.
func NewBearerServer(st store.Store, cfg config.Config) *oauth.BearerServer {
	return oauth.NewBearerServer(cfg.TokenSecret, cfg.TokenTTL, CredentialsVerifier(st), nil)
}

type credentialsVerifier struct {
	store store.Store
	now   func() time.Time
}

func CredentialsVerifier(st store.Store) oauth.CredentialsVerifier {
	return &credentialsVerifier{st, time.Now}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	var admin model.Admin
	err := cs.store.Get(r.Context(), model.AdminPath(username), &admin)
	if err != nil {
		return err
	}

	return bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password))
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	return cs.store.Set(ctx, model.TokenPath(refreshTokenID), model.Token{
		Credential:     credential,
		TokenID:        tokenID,
		RefreshTokenID: refreshTokenID,
		Expiration:     cs.now().Add(refreshTokenTTL),
	})
}

// ValidateTokenID consumes the refresh token: a token can be exchanged once.
func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	var token model.Token
	err := cs.store.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		path := model.TokenPath(refreshTokenID)
		if err := tx.Get(path, &token); err != nil {
			return err
		}
		return tx.Delete(path)
	})
	if err != nil {
		return errRefresh
	}

	if token.Credential != credential || token.TokenID != tokenID {
		return errRefresh
	}
	if token.Expiration.Before(cs.now()) {
		return errRefresh
	}
	return nil
}

func (*credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"roles": "admin"}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{"admin_id": credential}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}

// HashPassword produces the hash stored in model.Admin.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}
