// Package cache persists an account's Enform session between runs.
//
// The identity provider rate-limits the interactive B2C login flow, and a full login takes
// four round-trips; reusing a cached id token (or redeeming the refresh token when the id
// token has lapsed) makes repeated CLI invocations fast and keeps the account off the
// provider's radar. The cache also carries the vehicle list, which rarely changes, and the
// user-supplied mapping from vehicle ids to full VINs, which the listing API cannot
// recover.
//
// Expiry times are stored pre-buffered: the writer subtracts a safety margin at write time
// so a reader never picks up a token that will expire mid-request.
//
// A cache file contains bearer tokens. [Cache.SaveFile] creates it owner-readable only;
// keep it out of shared directories.
package cache
