// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

// Package models defines the API request and response envelopes.
package models

// APIResponse represents a standard API response wrapper
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ListResponse represents a list response
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

// SuccessResponse wraps data in a successful envelope.
func SuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ListSuccessResponse wraps items in a successful list envelope.
func ListSuccessResponse[T any](items []T) APIResponse[ListResponse[T]] {
	return APIResponse[ListResponse[T]]{
		Success: true,
		Data: ListResponse[T]{
			Items:      items,
			TotalCount: len(items),
		},
	}
}

// ErrorResponse builds an error envelope.
func ErrorResponse(message, code string) APIResponse[any] {
	return APIResponse[any]{
		Success: false,
		Error:   message,
		Code:    code,
	}
}

// CheckResponse carries the outcome of an authorization check.
type CheckResponse struct {
	Effect string `json:"effect"`
}
