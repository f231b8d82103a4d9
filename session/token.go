// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserInfoFromToken reads the user's details from the claims of a JWT
// bearer token. The signature is not verified: the API does that on every
// call, and this information is only displayed. Tokens that are not JWTs
// yield an empty UserInfo.
func UserInfoFromToken(token string) UserInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return UserInfo{}
	}

	var info UserInfo
	for _, key := range []string{"id", "_id", "userId", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			info.UserID = v
			break
		}
	}
	if v, ok := claims["name"].(string); ok {
		info.Name = v
	}
	if v, ok := claims["email"].(string); ok {
		info.Email = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}
