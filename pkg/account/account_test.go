package account_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lexusenform/vehicle-remote/pkg/account"
	"github.com/lexusenform/vehicle-remote/pkg/cache"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

const (
	authorizeURL   = "https://login.microsoftonline.com/tmnab2c.onmicrosoft.com/oauth2/v2.0/authorize"
	tokenURL       = "https://login.microsoftonline.com/tmnab2c.onmicrosoft.com/oauth2/v2.0/token"
	selfAssertedRE = `=~^https://login\.microsoftonline\.com/tmnab2c\.onmicrosoft\.com/B2C_1_TMNA_TSC_SXM_LER_SignInPolicy/SelfAsserted`
	confirmedRE    = `=~^https://login\.microsoftonline\.com/tmnab2c\.onmicrosoft\.com/B2C_1_TMNA_TSC_SXM_LER_SignInPolicy/api/CombinedSigninAndSignup/confirmed`
	exchangeURL    = "https://mobile.telematics.net/as/exchangeToken"
	listingURL     = "https://prd.api.telematics.net/m/subscription/accounts/guid-1/vehicles"
	statusURL      = "https://tscgt13cy01.g-book.com/keyoffservices/get_realtime_status.aspx"

	testEmail    = "driver@example.com"
	testPassword = "correct-horse-battery"
)

// mintIDToken builds an unsigned JWT carrying only an exp claim.
func mintIDToken(exp time.Time) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(fmt.Sprintf(`{"exp":%d}`, exp.Unix())))
	return header + "." + payload + ".signature"
}

func transCookieValue(transactionID string) string {
	blob, err := json.Marshal(map[string]interface{}{
		"T_DIC": []map[string]string{{"I": transactionID}},
	})
	Expect(err).NotTo(HaveOccurred())
	return base64.StdEncoding.EncodeToString(blob)
}

// registerLoginResponders wires up the whole happy-path login flow, handing out
// issuedIDToken from the token endpoint.
func registerLoginResponders(issuedIDToken string) {
	httpmock.RegisterResponder("GET", authorizeURL,
		func(*http.Request) (*http.Response, error) {
			response := httpmock.NewStringResponse(200, "<html></html>")
			response.Header.Add("Set-Cookie", "x-ms-cpim-csrf=csrf-1; Path=/")
			response.Header.Add("Set-Cookie", "x-ms-cpim-trans="+transCookieValue("trans-1")+"; Path=/")
			return response, nil
		})
	httpmock.RegisterResponder("POST", selfAssertedRE,
		func(request *http.Request) (*http.Response, error) {
			Expect(request.Header.Get("X-CSRF-TOKEN")).To(Equal("csrf-1"))
			Expect(request.Header.Get("Origin")).To(Equal("https://login.microsoftonline.com"))
			Expect(request.ParseForm()).To(Succeed())
			Expect(request.PostForm.Get("logonIdentifier")).To(Equal(testEmail))
			Expect(request.PostForm.Get("password")).To(Equal(testPassword))
			return httpmock.NewStringResponse(200, `{"status":"200"}`), nil
		})
	httpmock.RegisterResponder("GET", confirmedRE,
		func(*http.Request) (*http.Response, error) {
			response := httpmock.NewStringResponse(302, "")
			response.Header.Set("Location", "urn:ietf:wg:oauth:2.0:oob?code=auth-code-1")
			return response, nil
		})
	httpmock.RegisterResponder("POST", tokenURL,
		func(request *http.Request) (*http.Response, error) {
			Expect(request.ParseForm()).To(Succeed())
			Expect(request.PostForm.Get("grant_type")).To(Equal("authorization_code"))
			Expect(request.PostForm.Get("code")).To(Equal("auth-code-1"))
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"id_token":                 issuedIDToken,
				"refresh_token":            "refresh-1",
				"id_token_expires_in":      3600,
				"refresh_token_expires_in": 86400,
			})
		})
}

var _ = Describe("Account", func() {
	var (
		ctx           context.Context
		cacheFilename string
	)

	BeforeEach(func() {
		httpmock.Activate()
		DeferCleanup(httpmock.DeactivateAndReset)
		ctx = context.Background()
		cacheFilename = filepath.Join(GinkgoT().TempDir(), "tokens.json")
	})

	writeCache := func(c *cache.Cache) {
		Expect(c.SaveFile(cacheFilename)).To(Succeed())
	}

	Describe("IDToken", func() {
		It("runs the full login flow when the cache is empty", func() {
			issued := mintIDToken(time.Now().Add(time.Hour))
			registerLoginResponders(issued)

			acct := account.New(testEmail, testPassword, cacheFilename)
			token, err := acct.IDToken(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal(issued))

			calls := httpmock.GetCallCountInfo()
			Expect(calls["GET "+authorizeURL]).To(Equal(1))
			Expect(calls["POST "+tokenURL]).To(Equal(1))

			restored, err := cache.LoadFile(cacheFilename)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.IDToken).To(Equal(issued))
			Expect(restored.RefreshToken).To(Equal("refresh-1"))
		})

		It("returns a cached unexpired token without network traffic", func() {
			cached := mintIDToken(time.Now().Add(time.Hour))
			writeCache(&cache.Cache{IDToken: cached})

			acct := account.New(testEmail, testPassword, cacheFilename)
			token, err := acct.IDToken(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal(cached))
			Expect(httpmock.GetTotalCallCount()).To(BeZero())
		})

		It("redeems the refresh token when the id token has expired", func() {
			issued := mintIDToken(time.Now().Add(time.Hour))
			writeCache(&cache.Cache{
				IDToken:        mintIDToken(time.Now().Add(-time.Hour)),
				RefreshToken:   "refresh-1",
				RefreshExpires: time.Now().Add(24 * time.Hour).Unix(),
			})
			httpmock.RegisterResponder("POST", tokenURL,
				func(request *http.Request) (*http.Response, error) {
					Expect(request.ParseForm()).To(Succeed())
					Expect(request.PostForm.Get("grant_type")).To(Equal("refresh_token"))
					Expect(request.PostForm.Get("refresh_token")).To(Equal("refresh-1"))
					return httpmock.NewJsonResponse(200, map[string]interface{}{
						"id_token":            issued,
						"id_token_expires_in": 3600,
					})
				})

			acct := account.New(testEmail, testPassword, cacheFilename)
			token, err := acct.IDToken(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal(issued))

			calls := httpmock.GetCallCountInfo()
			Expect(calls["POST "+tokenURL]).To(Equal(1))
			Expect(calls["GET "+authorizeURL]).To(BeZero())

			// The grant left the refresh token alone, so the old one must survive.
			restored, err := cache.LoadFile(cacheFilename)
			Expect(err).NotTo(HaveOccurred())
			Expect(restored.RefreshToken).To(Equal("refresh-1"))
		})

		It("reports rejected credentials as an AuthError", func() {
			registerLoginResponders(mintIDToken(time.Now().Add(time.Hour)))
			httpmock.RegisterResponder("GET", confirmedRE,
				func(*http.Request) (*http.Response, error) {
					response := httpmock.NewStringResponse(302, "")
					response.Header.Set("Location",
						"urn:ietf:wg:oauth:2.0:oob?error=access_denied&error_description=AADB2C90225")
					return response, nil
				})

			acct := account.New(testEmail, testPassword, cacheFilename)
			_, err := acct.IDToken(ctx)
			var authErr *protocol.AuthError
			Expect(err).To(BeAssignableToTypeOf(authErr))
		})

		It("surfaces token endpoint errors", func() {
			registerLoginResponders("")
			httpmock.RegisterResponder("POST", tokenURL,
				httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
					"error":             "invalid_grant",
					"error_description": "AADB2C90080: The provided grant has expired.",
				}))

			acct := account.New(testEmail, testPassword, cacheFilename)
			_, err := acct.IDToken(ctx)
			var authErr *protocol.AuthError
			Expect(err).To(BeAssignableToTypeOf(authErr))
			Expect(err.Error()).To(ContainSubstring("AADB2C90080"))
		})

		It("continues in memory when the cache cannot be written", func() {
			issued := mintIDToken(time.Now().Add(time.Hour))
			registerLoginResponders(issued)

			missing := filepath.Join(GinkgoT().TempDir(), "no", "such", "dir", "tokens.json")
			acct := account.New(testEmail, testPassword, missing)
			token, err := acct.IDToken(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal(issued))

			// Still served from memory afterwards, without another login.
			token, err = acct.IDToken(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal(issued))
			Expect(httpmock.GetCallCountInfo()["GET "+authorizeURL]).To(Equal(1))
		})
	})

	Describe("Execute", func() {
		It("posts the command and parses the acknowledgment", func() {
			httpmock.RegisterResponder("POST", statusURL+"?VIN=JTHBE1D27F5019392",
				func(request *http.Request) (*http.Response, error) {
					Expect(request.Header.Get("Authorization")).To(Equal("Bearer id-token"))
					return httpmock.NewStringResponse(200,
						`<SPML><RESULT><CODE>011000</CODE></RESULT><LIST></LIST></SPML>`), nil
				})

			acct := account.New(testEmail, testPassword, "")
			rsp, err := acct.Execute(ctx, protocol.StatusCommand("id-token", "JTHBE1D27F5019392"))
			Expect(err).NotTo(HaveOccurred())
			Expect(rsp).To(BeAssignableToTypeOf(&protocol.VehicleStatus{}))
		})

		It("reports non-200 responses as a CommandError with the body", func() {
			httpmock.RegisterResponder("POST", statusURL,
				httpmock.NewStringResponder(500, "internal gateway error"))

			acct := account.New(testEmail, testPassword, "")
			_, err := acct.Execute(ctx, protocol.StatusCommand("id-token", "JTHBE1D27F5019392"))
			var commandErr *protocol.CommandError
			Expect(err).To(BeAssignableToTypeOf(commandErr))
			Expect(err.Error()).To(ContainSubstring("internal gateway error"))
		})
	})
})
