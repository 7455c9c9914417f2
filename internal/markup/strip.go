package markup

import (
	"fmt"
	"unicode/utf8"
)

// Strip removes every opener and closer literal from raw. No other character
// is touched.
func Strip(raw string, table *TagTable) string {
	return table.matcher.ReplaceAllLiteralString(raw, "")
}

// CheckCorrection verifies that the code points removed by Strip equal the
// offset correction accumulated by Scan.
func CheckCorrection(raw, stripped string, res *ScanResult) error {
	delta := utf8.RuneCountInString(raw) - utf8.RuneCountInString(stripped)
	if delta != res.Removed {
		return &InvariantError{Message: fmt.Sprintf("stripped %d code points but scanner corrected %d", delta, res.Removed)}
	}
	return nil
}
