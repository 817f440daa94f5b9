package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"era-vendors-api/internal/auth"
	"era-vendors-api/internal/config"
	"era-vendors-api/internal/models"
)

func main() {
	var (
		userID     = flag.Int64("user", 1, "User ID")
		name       = flag.String("name", "", "Display name recorded as the actor of vendor changes")
		roles      = flag.String("roles", models.RoleAdmin, "Comma-separated list of roles")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	cfg := config.Load()
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	roleList := strings.Split(*roles, ",")
	for i, role := range roleList {
		roleList[i] = strings.TrimSpace(role)
	}
	if !models.ValidateRoles(roleList) {
		log.Fatalf("Invalid roles %q, expected any of %s", *roles, strings.Join(models.ValidRoles, ", "))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)
	token, err := jwtManager.GenerateToken(*userID, *name, roleList)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	actor := auth.Actor(auth.StaticUser(*name), models.DefaultActor)
	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %d\n", *userID)
	fmt.Printf("Actor: %s\n", actor)
	fmt.Printf("Roles: %s\n", strings.Join(roleList, ", "))
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/vendors\n", token)
}
