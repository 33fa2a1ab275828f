package reconcile

// DeriveGrade maps marks to a letter. It is always recomputed at import
// time and never read from the uploaded sheet.
func DeriveGrade(marks int) string {
	switch {
	case marks >= 80:
		return "A"
	case marks >= 70:
		return "B"
	case marks >= 60:
		return "C"
	case marks >= 50:
		return "D"
	case marks >= 40:
		return "E"
	default:
		return "F"
	}
}
