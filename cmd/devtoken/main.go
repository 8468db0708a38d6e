// Command devtoken prints a bearer token signed with the configured JWT
// secret, for exercising the API locally.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/noah-isme/lms-grading-api/internal/models"
	"github.com/noah-isme/lms-grading-api/internal/service"
	"github.com/noah-isme/lms-grading-api/pkg/config"
)

func main() {
	userID := flag.Int64("user", 1, "user id placed in the token")
	role := flag.String("role", string(models.RoleTeacher), "ADMIN, TEACHER or STUDENT")
	email := flag.String("email", "", "email claim")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens in production")
	}

	r := models.UserRole(strings.ToUpper(*role))
	switch r {
	case models.RoleAdmin, models.RoleTeacher, models.RoleStudent:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Expiry: cfg.JWT.Expiration, Issuer: cfg.JWT.Issuer})
	signed, expires, err := tokens.Issue(models.User{ID: *userID, Role: r, Email: *email})
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(signed)
}
