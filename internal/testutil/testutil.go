package testutil

import "go.uber.org/zap"

// NewTestLogger логгер, который ничего не пишет
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// Ptr возвращает указатель на значение
func Ptr[T any](v T) *T {
	return &v
}
