// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

// Handler receives decoded messages from a Parser, one method per supported
// message type plus HandleUnknown for everything else.
//
// Methods run synchronously on the goroutine that called Parser.Feed. A
// handler that blocks stalls ingestion, so hand work off (e.g. to a buffered
// channel) if it may take long.
type Handler interface {
	HandleNavPosLLH(m *NavPosLLH)
	HandleNavDOP(m *NavDOP)
	HandleNavVelNED(m *NavVelNED)
	HandleNavSol(m *NavSol)
	HandleUnknown(m *Unknown)
}

// NopHandler ignores every message. Embed it to implement only the methods
// you need.
type NopHandler struct{}

func (NopHandler) HandleNavPosLLH(*NavPosLLH) {}
func (NopHandler) HandleNavDOP(*NavDOP)       {}
func (NopHandler) HandleNavVelNED(*NavVelNED) {}
func (NopHandler) HandleNavSol(*NavSol)       {}
func (NopHandler) HandleUnknown(*Unknown)     {}

// HandlerFunc adapts a single function to the Handler interface. Every
// message, including *Unknown, is passed to the function.
type HandlerFunc func(Message)

func (f HandlerFunc) HandleNavPosLLH(m *NavPosLLH) { f(m) }
func (f HandlerFunc) HandleNavDOP(m *NavDOP)       { f(m) }
func (f HandlerFunc) HandleNavVelNED(m *NavVelNED) { f(m) }
func (f HandlerFunc) HandleNavSol(m *NavSol)       { f(m) }
func (f HandlerFunc) HandleUnknown(m *Unknown)     { f(m) }

// Dispatch invokes the handler method matching m
func Dispatch(h Handler, m Message) {
	m.dispatch(h)
}
