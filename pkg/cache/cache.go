package cache

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/lexusenform/vehicle-remote/pkg/vehicle"
)

// Cache holds an account's tokens, discovered vehicles, and user-supplied VIN mappings
// between runs.
//
// IDExpires and RefreshExpires are epoch seconds, already adjusted down by the writer's
// safety buffer, so readers compare them directly against the wall clock. A Cache is not
// safe for concurrent use; it is owned by a single Account.
type Cache struct {
	IDToken        string             `json:"id_token,omitempty"`
	IDExpires      int64              `json:"id_expires,omitempty"`
	RefreshToken   string             `json:"refresh_token,omitempty"`
	RefreshExpires int64              `json:"refresh_expires,omitempty"`
	Vehicles       []*vehicle.Vehicle `json:"vehicles,omitempty"`
	Mappings       map[string]string  `json:"mappings,omitempty"`
}

func New() *Cache {
	return &Cache{Mappings: make(map[string]string)}
}

// RefreshValid reports whether the cached refresh token can still be redeemed.
func (c *Cache) RefreshValid(now time.Time) bool {
	return c.RefreshToken != "" && now.Unix() <= c.RefreshExpires
}

// Load reads a Cache previously written with Save.
func Load(r io.Reader) (*Cache, error) {
	var c Cache
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	if c.Mappings == nil {
		c.Mappings = make(map[string]string)
	}
	return &c, nil
}

// LoadFile reads a Cache from disk.
func LoadFile(filename string) (*Cache, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Load(file)
}

// Save writes a serialized Cache to w.
func (c *Cache) Save(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	return encoder.Encode(c)
}

// SaveFile writes a Cache to disk. The file holds bearer tokens, so it is created
// owner-readable only.
func (c *Cache) SaveFile(filename string) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return c.Save(file)
}
