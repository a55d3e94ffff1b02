// Command tokengen issues access tokens signed with the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	"github.com/noah-isme/course-registry-api/pkg/config"
	"github.com/noah-isme/course-registry-api/pkg/logger"
)

func main() {
	subject := flag.String("subject", "", "token subject; a student's SSN for the STUDENT role")
	role := flag.String("role", string(models.RoleRegistrar), "ADMIN, REGISTRAR or STUDENT")
	ttl := flag.Duration("ttl", 0, "override the configured token lifetime")
	flag.Parse()

	if strings.TrimSpace(*subject) == "" {
		flag.Usage()
		os.Exit(2)
	}

	userRole := models.UserRole(strings.ToUpper(*role))
	switch userRole {
	case models.RoleAdmin, models.RoleRegistrar, models.RoleStudent:
	default:
		log.Fatalf("unknown role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}
	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})

	token, expiresAt, err := auth.IssueToken(*subject, userRole)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
}
