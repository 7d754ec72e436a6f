package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
	"github.com/lexusenform/vehicle-remote/pkg/vehicle"
)

// Vehicle listing lives behind a second-tier API that wants its own access token, obtained
// by exchanging the id token. The exchange also yields the API key and account GUID the
// listing endpoint requires, both via response headers.
type exchangeResult struct {
	accessToken string
	apiKey      string
	accountGUID string
}

func (a *Account) exchangeToken(ctx context.Context, idToken string) (*exchangeResult, error) {
	request, err := http.NewRequestWithContext(ctx, "POST", exchangeURL, nil)
	if err != nil {
		return nil, err
	}
	// 16CY and 18CY head units are not accepted by this endpoint.
	request.Header.Set("CV-TSP", "LEXUS_17CY")
	request.Header.Set("CV-OS-VERSION", "7.0")
	request.Header.Set("CV-OS-TYPE", "Android")
	request.Header.Set("Authorization", "Bearer "+idToken)

	body, response, err := a.do(&a.client, request)
	if err != nil {
		return nil, &protocol.AuthError{Err: err}
	}
	if response.StatusCode != http.StatusOK {
		return nil, &protocol.AuthError{Description: fmt.Sprintf("token exchange rejected: %s", body)}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
	}
	if err := unmarshalJSON(body, &parsed); err != nil {
		return nil, &protocol.AuthError{Err: err}
	}
	result := &exchangeResult{
		accessToken: parsed.AccessToken,
		apiKey:      response.Header.Get("CV-APIKey"),
		accountGUID: response.Header.Get("GUID"),
	}
	if result.accessToken == "" || result.accountGUID == "" {
		return nil, &protocol.AuthError{Description: fmt.Sprintf("token exchange response is incomplete: %s", body)}
	}
	return result, nil
}

type listedVehicle struct {
	ID        string      `json:"id"`
	VIN       string      `json:"vin"`
	MakeName  string      `json:"makeName"`
	ModelName string      `json:"modelName"`
	ModelYear json.Number `json:"modelYear"`
}

// Vehicles returns the vehicles bound to the account. Results are cached (and persisted)
// until forceRefresh is set.
func (a *Account) Vehicles(ctx context.Context, forceRefresh bool) ([]*vehicle.Vehicle, error) {
	if !forceRefresh && a.cache.Vehicles != nil {
		return a.cache.Vehicles, nil
	}

	idToken, err := a.IDToken(ctx)
	if err != nil {
		return nil, err
	}
	exchange, err := a.exchangeToken(ctx, idToken)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"view":       {"SUMMARY"},
		"role":       {"REMOTECMD_USER"},
		"timeZone":   {"utc"},
		"timeFormat": {"custom"},
	}
	u := fmt.Sprintf(accountURLFormat, exchange.accountGUID) + "?" + query.Encode()
	request, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("CV-ApiKey", exchange.apiKey)
	request.Header.Set("CV-AppType", "MOBILE")
	request.Header.Set("Authorization", "Bearer "+exchange.accessToken)

	body, response, err := a.do(&a.client, request)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, &protocol.CommandError{
			Message:      fmt.Sprintf("vehicle listing failed with status %s", response.Status),
			ResponseText: string(body),
		}
	}

	// Decode each entry twice: once into the known summary fields and once as the raw
	// blob, preserved so callers can reach vendor fields this library doesn't model.
	var entries []json.RawMessage
	if err := unmarshalJSON(body, &entries); err != nil {
		return nil, err
	}
	vehicles := make([]*vehicle.Vehicle, 0, len(entries))
	for _, entry := range entries {
		var listed listedVehicle
		if err := unmarshalJSON(entry, &listed); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, &vehicle.Vehicle{
			ID:         listed.ID,
			PartialVIN: listed.VIN,
			FullVIN:    a.cache.Mappings[listed.ID],
			Make:       listed.MakeName,
			Model:      listed.ModelName,
			Year:       listed.ModelYear.String(),
			ExtraData:  entry,
		})
	}
	log.Info("Account has %d vehicle(s)", len(vehicles))

	a.cache.Vehicles = vehicles
	a.persist()
	return vehicles, nil
}

// Vehicle finds a vehicle by VIN. The listing API only returns partial VINs, so a vehicle
// matches when its full VIN equals vin exactly or when its partial VIN is a prefix of vin.
func (a *Account) Vehicle(ctx context.Context, vin string, forceRefresh bool) (*vehicle.Vehicle, error) {
	vehicles, err := a.Vehicles(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}
	for _, v := range vehicles {
		if vin == v.FullVIN || (v.PartialVIN != "" && strings.HasPrefix(vin, v.PartialVIN)) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("account has no vehicle matching VIN %s", vin)
}

// AddVINMapping registers the full VIN for a vehicle id. The mapping applies to the cached
// vehicle list immediately and to every later listing fetch.
func (a *Account) AddVINMapping(vehicleID, vin string) {
	if a.cache.Mappings == nil {
		a.cache.Mappings = make(map[string]string)
	}
	a.cache.Mappings[vehicleID] = vin
	for _, v := range a.cache.Vehicles {
		if v.ID == vehicleID {
			v.FullVIN = vin
		}
	}
	a.persist()
}
