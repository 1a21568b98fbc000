// Package dto defines data transfer objects for the instruments HTTP API.
package dto

// InstrumentItem represents an instrument in the API response.
type InstrumentItem struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Exchange string `json:"exchange"`
}
