package tabula

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg int // User message accent
	System  int // System notices (uploads, dataset switches)
	Code    int // Generated analysis code
	Output  int // Captured script output
	Error   int // Error messages
	Success int // Success indicators
	Muted   int // Status bar, placeholders
	Accent  int // Headings, links, table headers
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		System:  6,
		Code:    3,
		Output:  7,
		Error:   1,
		Success: 2,
		Muted:   8,
		Accent:  5,
	}
}
