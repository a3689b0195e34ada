package auth

import "context"

// AuthVerifier valida un bearer token y devuelve los claims del usuario.
// El error envuelve el motivo del rechazo; AuthContext lo registra y sigue
// sin claims, así que los handlers responden 401.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}
