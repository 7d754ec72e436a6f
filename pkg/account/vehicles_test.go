package account_test

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lexusenform/vehicle-remote/pkg/account"
	"github.com/lexusenform/vehicle-remote/pkg/cache"
)

const listingBody = `[
	{"id":"100001","vin":"JTHBE1D27F50","makeName":"Lexus","modelName":"RC 350","modelYear":2015,"color":"Atomic Silver"},
	{"id":"100002","vin":"JTJBARBZ5K50","makeName":"Lexus","modelName":"NX 300","modelYear":2018}
]`

func registerDiscoveryResponders() {
	httpmock.RegisterResponder("POST", exchangeURL,
		func(request *http.Request) (*http.Response, error) {
			Expect(request.Header.Get("CV-TSP")).To(Equal("LEXUS_17CY"))
			Expect(request.Header.Get("CV-OS-TYPE")).To(Equal("Android"))
			response := httpmock.NewStringResponse(200, `{"access_token":"exchange-access"}`)
			response.Header.Set("CV-APIKey", "api-key-1")
			response.Header.Set("GUID", "guid-1")
			return response, nil
		})
	httpmock.RegisterResponder("GET", listingURL,
		func(request *http.Request) (*http.Response, error) {
			Expect(request.Header.Get("Authorization")).To(Equal("Bearer exchange-access"))
			Expect(request.Header.Get("CV-ApiKey")).To(Equal("api-key-1"))
			Expect(request.Header.Get("CV-AppType")).To(Equal("MOBILE"))
			Expect(request.URL.Query().Get("role")).To(Equal("REMOTECMD_USER"))
			return httpmock.NewStringResponse(200, listingBody), nil
		})
}

var _ = Describe("Vehicle discovery", func() {
	var (
		ctx           context.Context
		cacheFilename string
		acct          *account.Account
	)

	BeforeEach(func() {
		httpmock.Activate()
		DeferCleanup(httpmock.DeactivateAndReset)
		ctx = context.Background()
		cacheFilename = filepath.Join(GinkgoT().TempDir(), "tokens.json")

		// Seed a valid id token so discovery never needs the login flow.
		c := cache.New()
		c.IDToken = mintIDToken(time.Now().Add(time.Hour))
		Expect(c.SaveFile(cacheFilename)).To(Succeed())

		registerDiscoveryResponders()
		acct = account.New(testEmail, testPassword, cacheFilename)
	})

	It("lists vehicles with vendor fields preserved", func() {
		vehicles, err := acct.Vehicles(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(vehicles).To(HaveLen(2))

		Expect(vehicles[0].ID).To(Equal("100001"))
		Expect(vehicles[0].PartialVIN).To(Equal("JTHBE1D27F50"))
		Expect(vehicles[0].FullVIN).To(BeEmpty())
		Expect(vehicles[0].Make).To(Equal("Lexus"))
		Expect(vehicles[0].Model).To(Equal("RC 350"))
		Expect(vehicles[0].Year).To(Equal("2015"))
		Expect(string(vehicles[0].ExtraData)).To(ContainSubstring("Atomic Silver"))
	})

	It("serves repeat listings from the cache", func() {
		_, err := acct.Vehicles(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		_, err = acct.Vehicles(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(httpmock.GetCallCountInfo()["GET "+listingURL]).To(Equal(1))

		_, err = acct.Vehicles(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(httpmock.GetCallCountInfo()["GET "+listingURL]).To(Equal(2))
	})

	It("finds a vehicle by partial VIN prefix", func() {
		v, err := acct.Vehicle(ctx, "JTHBE1D27F5019392", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.ID).To(Equal("100001"))

		_, err = acct.Vehicle(ctx, "5TDZA23C13S000000", false)
		Expect(err).To(HaveOccurred())
	})

	It("applies VIN mappings to cached and future listings", func() {
		vehicles, err := acct.Vehicles(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(vehicles[0].FullVIN).To(BeEmpty())

		acct.AddVINMapping("100001", "JTHBE1D27F5019392")
		Expect(vehicles[0].FullVIN).To(Equal("JTHBE1D27F5019392"))

		v, err := acct.Vehicle(ctx, "JTHBE1D27F5019392", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.ID).To(Equal("100001"))

		// A fresh account picks the mapping up from the persisted cache.
		restored := account.New(testEmail, testPassword, cacheFilename)
		v, err = restored.Vehicle(ctx, "JTHBE1D27F5019392", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.FullVIN).To(Equal("JTHBE1D27F5019392"))
	})
})
