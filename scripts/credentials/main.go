// Command credentials prints an API key hash for API_KEY_HASH, or a signed
// development token for JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	key := flag.String("key", "", "API key to hash")
	subject := flag.String("token-subject", "", "issue a JWT for this subject instead of hashing a key")
	role := flag.String("role", "operator", "role claim for issued tokens")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	switch {
	case *subject != "":
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			log.Fatal("JWT_SECRET must be set to issue tokens")
		}
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub":  *subject,
			"role": *role,
			"iat":  now.Unix(),
			"exp":  now.Add(*ttl).Unix(),
		})
		signed, err := token.SignedString([]byte(secret))
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		fmt.Println(signed)
	case *key != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(*key), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash key: %v", err)
		}
		fmt.Println(string(hash))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
