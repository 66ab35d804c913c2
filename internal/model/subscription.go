// Package model defines domain entities for the application.
package model

import "time"

// Column limits shared by the stores and request validation.
const (
	MaxMailLength     = 512
	MaxCategoryLength = 100
	MaxTokenLength    = 256
)

// Subscription records that an encoded mail address is subscribed to a
// category/subcategory pair.
type Subscription struct {
	ID           string    `json:"id"`
	MailBase64   string    `json:"mailBase64"`
	Category     string    `json:"category"`
	Subcategory  string    `json:"subcategory"`
	SubscribedAt time.Time `json:"dateSubscribed"`
}

// Triple is the natural lookup key shared by subscriptions and tokens.
type Triple struct {
	MailBase64  string
	Category    string
	Subcategory string
}

// Triple returns the subscription's lookup key.
func (s *Subscription) Triple() Triple {
	return Triple{MailBase64: s.MailBase64, Category: s.Category, Subcategory: s.Subcategory}
}
