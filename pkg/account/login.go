package account

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/lexusenform/vehicle-remote/internal/claims"
	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

// Cookies the authorize endpoint sets: the anti-forgery token and the base64 JSON
// transaction-state blob.
const (
	csrfCookieName  = "x-ms-cpim-csrf"
	transCookieName = "x-ms-cpim-trans"
)

// login drives the interactive B2C authorization-code flow end to end: render the
// authorization request, extract the anti-forgery and transaction-state cookies, submit
// credentials to the policy endpoint, pick the authorization code out of a redirect, and
// exchange it for tokens.
func (a *Account) login(ctx context.Context) error {
	log.Info("Logging in as %s", a.Email)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	session := http.Client{Jar: jar}

	csrf, tid, err := a.beginAuthorization(ctx, &session)
	if err != nil {
		return err
	}
	if err := a.submitCredentials(ctx, &session, csrf, tid); err != nil {
		return err
	}
	code, err := a.fetchAuthorizationCode(ctx, &session, csrf, tid)
	if err != nil {
		return err
	}

	tokens, err := a.requestTokens(ctx, &session, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {clientID},
		"redirect_uri": {redirectURI},
		"scope":        {oauthScope},
		"p":            {signInPolicy},
	})
	if err != nil {
		return err
	}
	a.storeTokens(tokens)
	return nil
}

func (a *Account) beginAuthorization(ctx context.Context, session *http.Client) (csrf, tid string, err error) {
	query := url.Values{
		"client_id":     {clientID},
		"response_type": {"code"},
		"redirect_uri":  {redirectURI},
		"scope":         {oauthScope},
		"prompt":        {"login"},
		"p":             {signInPolicy},
		"response_mode": {"query"},
	}
	request, err := http.NewRequestWithContext(ctx, "GET", authorizeURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", "", err
	}
	if _, _, err := a.do(session, request); err != nil {
		return "", "", &protocol.AuthError{Err: err}
	}

	csrf, err = cookieValue(session.Jar, csrfCookieName)
	if err != nil {
		return "", "", err
	}
	trans, err := cookieValue(session.Jar, transCookieName)
	if err != nil {
		return "", "", err
	}
	transactionID, err := transactionIDFromCookie(trans)
	if err != nil {
		return "", "", err
	}
	// The policy endpoints want the transaction id re-wrapped as base64 JSON.
	tid = base64.StdEncoding.EncodeToString([]byte(`{"TID":"` + transactionID + `"}`))
	return csrf, tid, nil
}

// transactionIDFromCookie digs the transaction id out of the base64 JSON state blob, at
// T_DIC[0].I.
func transactionIDFromCookie(value string) (string, error) {
	state, err := claims.DecodeBase64JSON(value)
	if err != nil {
		return "", &protocol.AuthError{Description: "malformed transaction cookie", Err: err}
	}
	dic, ok := state["T_DIC"].([]interface{})
	if !ok || len(dic) == 0 {
		return "", &protocol.AuthError{Description: "transaction cookie carries no T_DIC entries"}
	}
	entry, ok := dic[0].(map[string]interface{})
	if !ok {
		return "", &protocol.AuthError{Description: "transaction cookie carries no T_DIC entries"}
	}
	id, ok := entry["I"].(string)
	if !ok || id == "" {
		return "", &protocol.AuthError{Description: "transaction cookie entry carries no transaction id"}
	}
	return id, nil
}

func cookieValue(jar http.CookieJar, name string) (string, error) {
	u, _ := url.Parse(authorizationBaseURL)
	for _, cookie := range jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value, nil
		}
	}
	return "", &protocol.AuthError{Description: fmt.Sprintf("authorization response did not set cookie %s", name)}
}

func (a *Account) submitCredentials(ctx context.Context, session *http.Client, csrf, tid string) error {
	// The repeated '=' inside the tx parameter is intentional; the policy endpoint
	// expects the value verbatim, so the URL is assembled by hand rather than through
	// url.Values encoding.
	u := authorizationBaseURL + "/" + signInPolicy + "/SelfAsserted" +
		"?tx=StateProperties=" + tid + "&p=" + signInPolicy

	form := url.Values{
		"request_type":    {"RESPONSE"},
		"logonIdentifier": {a.Email},
		"password":        {a.password},
	}
	request, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("X-CSRF-TOKEN", csrf)
	request.Header.Set("Origin", "https://login.microsoftonline.com")

	// The response body is not meaningful; success or failure shows up at the next step.
	if _, _, err := a.do(session, request); err != nil {
		return &protocol.AuthError{Err: err}
	}
	return nil
}

func (a *Account) fetchAuthorizationCode(ctx context.Context, session *http.Client, csrf, tid string) (string, error) {
	u := authorizationBaseURL + "/" + signInPolicy + "/api/CombinedSigninAndSignup/confirmed" +
		"?csrf_token=" + csrf + "&tx=StateProperties=" + tid + "&p=" + signInPolicy

	// The authorization code arrives in the Location header, so the redirect must not be
	// followed.
	confirmed := *session
	confirmed.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	request, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}
	_, response, err := a.do(&confirmed, request)
	if err != nil {
		return "", &protocol.AuthError{Err: err}
	}

	location := response.Header.Get("Location")
	if location == "" || strings.Contains(location, "error") {
		return "", &protocol.AuthError{Description: fmt.Sprintf("login rejected: %s", location)}
	}
	redirect, err := url.Parse(location)
	if err != nil {
		return "", &protocol.AuthError{Err: err}
	}
	code := redirect.Query().Get("code")
	if code == "" {
		return "", &protocol.AuthError{Description: fmt.Sprintf("redirect carries no authorization code: %s", location)}
	}
	return code, nil
}
