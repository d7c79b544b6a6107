// WanderLens - Travel Customer Segmentation and Perk Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wanderlens

package database

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup operations in error paths where Close() errors are not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// identifierPattern matches the table/column names this pipeline creates.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifier rejects names that cannot be safely interpolated into
// SQL. Table and column names come from config, not user input, but failing
// loudly here keeps a config typo from turning into a confusing parse error.
func validateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier: %q", name)
	}
	return nil
}

// quoteIdentifier wraps a validated identifier in double quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

// quoteLiteral escapes a string for inline SQL literal use. Only used for
// file paths passed to read_csv_auto/COPY, which DuckDB does not accept as
// prepared-statement parameters in every statement position.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
