// Package account implements the Enform account facade: the B2C login and refresh flows,
// the persisted token cache, vehicle discovery, and the command executor that vehicle
// operations run through.
package account

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexusenform/vehicle-remote/internal/claims"
	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/cache"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
	"github.com/lexusenform/vehicle-remote/pkg/vehicle"
)

const (
	authorizationBaseURL = "https://login.microsoftonline.com/tmnab2c.onmicrosoft.com"
	authorizeURL         = authorizationBaseURL + "/oauth2/v2.0/authorize"
	tokenURL             = authorizationBaseURL + "/oauth2/v2.0/token"

	exchangeURL      = "https://mobile.telematics.net/as/exchangeToken"
	accountURLFormat = "https://prd.api.telematics.net/m/subscription/accounts/%s/vehicles"
	commandBaseURL   = "https://tscgt13cy01.g-book.com/keyoffservices"

	signInPolicy = "B2C_1_TMNA_TSC_SXM_LER_SignInPolicy"
	clientID     = "5004e6b3-5880-4fda-ae71-219d53e74988"
	redirectURI  = "urn:ietf:wg:oauth:2.0:oob"
	oauthScope   = "profile offline_access openid"

	// Stored expiry times are pulled in by this much so a token is never handed out
	// moments before it lapses server-side.
	expiryBuffer = 15 * time.Second
)

// Account is an authenticated session with the Enform service. It owns the token cache and
// performs all network IO. An Account is not safe for concurrent use; run each one on a
// single goroutine.
type Account struct {
	Email     string
	UserAgent string

	password       string
	cacheFilename  string
	cache          *cache.Cache
	persistEnabled bool
	client         http.Client
}

var _ vehicle.Session = (*Account)(nil)

// New creates an Account for the given credentials. cacheFilename names the persisted
// token cache; pass "" to operate purely in memory. A missing or corrupt cache file is
// treated as empty rather than surfaced, since the account can always log in from scratch.
func New(email, password, cacheFilename string) *Account {
	a := &Account{
		Email:          email,
		password:       password,
		cacheFilename:  cacheFilename,
		cache:          cache.New(),
		persistEnabled: cacheFilename != "",
	}
	if cacheFilename != "" {
		if c, err := cache.LoadFile(cacheFilename); err == nil {
			a.cache = c
		} else {
			log.Debug("Starting with empty token cache: %s", err)
		}
	}
	return a
}

// IDToken returns a currently-valid id token. A cached unexpired token is returned without
// network IO; an expired one is refreshed with the refresh token when that is still valid,
// and otherwise the full interactive login flow runs.
func (a *Account) IDToken(ctx context.Context) (string, error) {
	if a.cache.IDToken != "" {
		expired, err := claims.Expired(a.cache.IDToken, time.Now().Add(expiryBuffer))
		if err == nil && !expired {
			return a.cache.IDToken, nil
		}
		if err != nil {
			log.Warning("Cached id token is unreadable, discarding: %s", err)
		}
		if a.cache.RefreshValid(time.Now()) {
			if err := a.refreshTokens(ctx); err != nil {
				return "", err
			}
			return a.cache.IDToken, nil
		}
	}
	if err := a.login(ctx); err != nil {
		return "", err
	}
	return a.cache.IDToken, nil
}

func (a *Account) refreshTokens(ctx context.Context) error {
	log.Info("Id token expired, redeeming refresh token")
	tokens, err := a.requestTokens(ctx, &a.client, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {a.cache.RefreshToken},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"scope":         {oauthScope},
		"p":             {signInPolicy},
	})
	if err != nil {
		return err
	}
	a.storeTokens(tokens)
	return nil
}

// storeTokens records a successful token grant and persists the cache. The refresh token
// is kept when the grant doesn't rotate it.
func (a *Account) storeTokens(tokens *tokenResponse) {
	now := time.Now()
	a.cache.IDToken = tokens.IDToken
	a.cache.IDExpires = expiresAt(now, tokens.IDExpiresIn)
	if tokens.RefreshToken != "" {
		a.cache.RefreshToken = tokens.RefreshToken
		a.cache.RefreshExpires = expiresAt(now, tokens.RefreshExpiresIn)
	}
	a.persist()
}

func expiresAt(now time.Time, ttlSeconds int64) int64 {
	return now.Add(-expiryBuffer).Unix() + ttlSeconds
}

// persist writes the token cache to disk. Persistence failures must never break the
// command the user is trying to send: the first failure logs a warning and disables
// further attempts for the rest of the process, and the Account continues in memory.
func (a *Account) persist() {
	if !a.persistEnabled {
		return
	}
	if err := a.cache.SaveFile(a.cacheFilename); err != nil {
		log.Warning("Disabling token cache persistence: %s", err)
		a.persistEnabled = false
	}
}

type tokenResponse struct {
	IDToken          string `json:"id_token"`
	RefreshToken     string `json:"refresh_token"`
	IDExpiresIn      int64  `json:"id_token_expires_in"`
	RefreshExpiresIn int64  `json:"refresh_token_expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (a *Account) requestTokens(ctx context.Context, client *http.Client, form url.Values) (*tokenResponse, error) {
	request, err := http.NewRequestWithContext(ctx, "POST", tokenURL+"?p="+signInPolicy,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := a.do(client, request)
	if err != nil {
		return nil, &protocol.AuthError{Err: err}
	}

	var tokens tokenResponse
	if err := unmarshalJSON(body, &tokens); err != nil {
		return nil, &protocol.AuthError{Err: err}
	}
	if tokens.Error != "" {
		if tokens.ErrorDescription != "" {
			return nil, &protocol.AuthError{Description: tokens.ErrorDescription}
		}
		return nil, &protocol.AuthError{Description: string(body)}
	}
	if tokens.IDToken == "" {
		return nil, &protocol.AuthError{Description: string(body)}
	}
	return &tokens, nil
}
