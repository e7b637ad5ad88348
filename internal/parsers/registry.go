// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package parsers implements the five TOA5-style sap-flux file formats as a
// registry of content-sniffing parsers: a slice of values behind a
// one-method interface, tried in order, first success wins.
package parsers

import "github.com/fieldlab-science/sapfluxcore/pkg/schema"

// Parser recognizes and decodes one text-based logger export format.
type Parser interface {
	Name() string
	Parse(text string) (*schema.ParsedFile, *ParserError)
}

// Registry holds the fixed, ordered list of known parsers.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds the registry with the five formats in a fixed
// precedence order: most specific/most common format first, so that the
// common case short-circuits before the legacy fallbacks are tried.
func NewRegistry() *Registry {
	return &Registry{
		parsers: []Parser{
			&SapFlowAllParser{},
			&SapFlowShortParser{},
			&Simple5Parser{},
			&LegacyHXParser{},
			&LegacyMDYParser{},
		},
	}
}

// Parse tries every registered parser in order. FormatMismatch falls
// through to the next parser; any other error is terminal for that parser
// but the registry keeps trying the remaining ones. If none succeed,
// Parse returns a *NoMatchingParserError carrying every attempt.
func (r *Registry) Parse(text string) (*schema.ParsedFile, error) {
	attempts := make([]Attempt, 0, len(r.parsers))
	for _, p := range r.parsers {
		pf, perr := p.Parse(text)
		if perr == nil {
			return pf, nil
		}
		attempts = append(attempts, Attempt{ParserName: p.Name(), Err: perr})
		if perr.Kind == FormatMismatch {
			continue
		}
		// Terminal for this parser; registry still tries the rest.
	}
	return nil, &NoMatchingParserError{Attempts: attempts}
}
