package entities

// Checksum validation for Polish identification numbers. The recognition
// service filters pattern hits through the same algorithms; the harness
// uses these to craft structurally valid test samples and to tell a genuine
// identifier apart from a random digit run.

var (
	nipWeights     = []int{6, 5, 7, 2, 3, 4, 5, 6, 7}
	regon9Weights  = []int{8, 9, 2, 3, 4, 5, 6, 7}
	regon14Weights = []int{2, 4, 8, 5, 0, 9, 7, 3, 6, 1, 2, 4, 8}
	peselWeights   = []int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}
)

func extractDigits(text string) []int {
	digits := make([]int, 0, len(text))
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	return digits
}

// ValidatePESEL checks the modulo-10 checksum of an 11-digit PESEL.
// Separators (spaces, hyphens) are ignored.
func ValidatePESEL(pesel string) bool {
	digits := extractDigits(pesel)
	if len(digits) != 11 {
		return false
	}
	sum := 0
	for i, w := range peselWeights {
		sum += digits[i] * w
	}
	checksum := (10 - (sum % 10)) % 10
	return checksum == digits[10]
}

// ValidateNIP checks the weighted modulo-11 checksum of a 10-digit NIP.
// A checksum of 10 is officially invalid, not folded to 0.
func ValidateNIP(nip string) bool {
	digits := extractDigits(nip)
	if len(digits) != 10 {
		return false
	}
	sum := 0
	for i, w := range nipWeights {
		sum += digits[i] * w
	}
	checksum := sum % 11
	if checksum == 10 {
		return false
	}
	return checksum == digits[9]
}

// ValidateREGON accepts both the 9-digit and the extended 14-digit form.
func ValidateREGON(regon string) bool {
	digits := extractDigits(regon)
	switch len(digits) {
	case 9:
		return validRegonChecksum(digits, regon9Weights)
	case 14:
		return validRegonChecksum(digits, regon14Weights)
	default:
		return false
	}
}

func validRegonChecksum(digits []int, weights []int) bool {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	checksum := sum % 11
	if checksum == 10 {
		return false
	}
	return checksum == digits[len(digits)-1]
}
