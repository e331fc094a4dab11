// Package models flattens the provider configuration into the model listing
// consumed by the UI. Entries of the hosted jaaz provider are only listed for
// an authenticated session since their requests are billed to the user.
package models

import (
	"sort"

	"github.com/feitianbubu/jaaz/internal/config"
	"github.com/feitianbubu/jaaz/internal/constant"
)

// Entry is one selectable model in the UI listing.
type Entry struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	Type        string `json:"type"`
	URL         string `json:"url,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Service produces model listings from the current provider table.
type Service struct {
	providers func() map[string]*config.Provider
	loggedIn  func() bool
}

// NewService builds a listing service over the given snapshot sources.
func NewService(providers func() map[string]*config.Provider, loggedIn func() bool) *Service {
	return &Service{providers: providers, loggedIn: loggedIn}
}

// List returns the flattened model entries in stable provider/model order.
func (s *Service) List() []Entry {
	providers := s.providers()
	loggedIn := s.loggedIn()

	entries := make([]Entry, 0, 16)
	for providerName, provider := range providers {
		if providerName == constant.Jaaz && !loggedIn {
			continue
		}
		for modelID, model := range provider.Models {
			modelType := model.Type
			if modelType == "" {
				modelType = "text"
			}
			entries = append(entries, Entry{
				Provider:    providerName,
				Model:       modelID,
				Type:        modelType,
				URL:         provider.URL,
				DisplayName: model.DisplayName,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Provider != entries[j].Provider {
			return entries[i].Provider < entries[j].Provider
		}
		return entries[i].Model < entries[j].Model
	})
	return entries
}
