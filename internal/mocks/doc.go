// Package mocks contains gomock implementations of the interfaces of go-gunzip.
package mocks

//go:generate mockgen -destination=mock_logger.go -package=mocks github.com/hashicorp/go-gunzip Logger
