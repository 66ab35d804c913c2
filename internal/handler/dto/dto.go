// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/mailsub/mailsub/internal/model"
)

// MailRequest is the request body shared by subscription and token writes.
// Mail may be a plain or already-encoded address.
type MailRequest struct {
	Mail        string `json:"mail" validate:"notblank,max=512"`
	Category    string `json:"category" validate:"notblank,max=100"`
	Subcategory string `json:"subcategory" validate:"notblank,max=100"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// SubscriptionResponse represents a subscription in API responses.
type SubscriptionResponse struct {
	ID             string    `json:"id"`
	MailBase64     string    `json:"mailBase64"`
	Category       string    `json:"category"`
	Subcategory    string    `json:"subcategory"`
	DateSubscribed time.Time `json:"dateSubscribed"`
}

// TokenCreatedResponse is returned when a token row is issued.
type TokenCreatedResponse struct {
	ID          string `json:"id"`
	Token       string `json:"token"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// TokenSummaryResponse is a token row in lookup results.
type TokenSummaryResponse struct {
	ID       string     `json:"id"`
	Token    string     `json:"token"`
	DateSent *time.Time `json:"dateSent"`
}

// TokenResponse is a full token row.
type TokenResponse struct {
	ID          string     `json:"id"`
	MailBase64  string     `json:"mailBase64"`
	Token       string     `json:"token"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	DateSent    *time.Time `json:"dateSent"`
}

// RefreshResponse reports the token returned by a refresh and what happened to it.
type RefreshResponse struct {
	ID          string     `json:"id"`
	Token       string     `json:"token"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	DateSent    *time.Time `json:"dateSent"`
	Created     bool       `json:"created"`
	Refreshed   bool       `json:"refreshed"`
}

// MailTokenResponse pairs an encoded address with its token.
type MailTokenResponse struct {
	MailBase64 string `json:"mailBase64"`
	Token      string `json:"token"`
}

// ToSubscriptionResponse converts a Subscription model to its DTO.
func ToSubscriptionResponse(sub *model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:             sub.ID,
		MailBase64:     sub.MailBase64,
		Category:       sub.Category,
		Subcategory:    sub.Subcategory,
		DateSubscribed: sub.SubscribedAt,
	}
}

// ToSubscriptionListResponse converts subscriptions to DTOs.
func ToSubscriptionListResponse(subs []*model.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, ToSubscriptionResponse(sub))
	}
	return out
}

// ToMailList extracts the encoded addresses from subscriptions.
func ToMailList(subs []*model.Subscription) []string {
	out := make([]string, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sub.MailBase64)
	}
	return out
}

// ToTokenCreatedResponse converts a newly issued token to its DTO.
func ToTokenCreatedResponse(token *model.Token) TokenCreatedResponse {
	return TokenCreatedResponse{
		ID:          token.ID,
		Token:       token.Value,
		Category:    token.Category,
		Subcategory: token.Subcategory,
	}
}

// ToTokenSummaryList converts lookup results to DTOs.
func ToTokenSummaryList(tokens []*model.Token) []TokenSummaryResponse {
	out := make([]TokenSummaryResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, TokenSummaryResponse{ID: t.ID, Token: t.Value, DateSent: t.SentAt})
	}
	return out
}

// ToTokenResponse converts a Token model to its full DTO.
func ToTokenResponse(token *model.Token) TokenResponse {
	return TokenResponse{
		ID:          token.ID,
		MailBase64:  token.MailBase64,
		Token:       token.Value,
		Category:    token.Category,
		Subcategory: token.Subcategory,
		DateSent:    token.SentAt,
	}
}

// ToRefreshResponse converts a refresh result to its DTO.
func ToRefreshResponse(res *model.RefreshResult) RefreshResponse {
	return RefreshResponse{
		ID:          res.Token.ID,
		Token:       res.Token.Value,
		Category:    res.Token.Category,
		Subcategory: res.Token.Subcategory,
		DateSent:    res.Token.SentAt,
		Created:     res.Created(),
		Refreshed:   res.Refreshed(),
	}
}

// ToMailTokenList converts tokens to address/token pairs.
func ToMailTokenList(tokens []*model.Token) []MailTokenResponse {
	out := make([]MailTokenResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, MailTokenResponse{MailBase64: t.MailBase64, Token: t.Value})
	}
	return out
}
