// Package mocks provides hand-written mock implementations of interfaces
// shared across package boundaries.
//
// Each mock has a function field per method. Unset fields fall back to the
// mock's default values:
//
//	jwtService := &mocks.MockJWTService{
//	    ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	        return nil, auth.ErrExpiredToken
//	    },
//	}
package mocks
