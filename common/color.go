package common

// ANSI colors for terminal verdict output.
const (
	ColorReset       = "\033[0m"
	ColorRed         = "\033[31m"
	ColorGreen       = "\033[32m"
	ColorGray        = "\033[90m"
	ColorBrightWhite = "\033[97m"
)
