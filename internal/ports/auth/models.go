package auth

// Claims representa la información extraída del token.
// UserID es el dueño de medicaciones y tomas; Email es informativo.
type Claims struct {
	UserID string
	Email  string
}
