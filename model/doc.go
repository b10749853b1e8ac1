// Package model defines the provider-agnostic abstractions and concrete
// helpers for driving text generation inside MemChat.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Hide vendor SDK message formats inside the provider adapters
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so the runner remains decoupled from vendor SDKs.
package model
