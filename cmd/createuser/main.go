package main

import (
	"flag"
	"fmt"
	"log"

	"gatelog.io/gatelog/config"
	"gatelog.io/gatelog/core"
	"gatelog.io/gatelog/core/models"
)

// createuser adds an account from the command line, for provisioning
// without a live admin session.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	username := flag.String("username", "", "login name")
	password := flag.String("password", "", "initial password")
	fullName := flag.String("full-name", "", "display name")
	role := flag.Int("role", core.RoleViewer, "role (0=root, 1=admin, 2=operator, 3=viewer)")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: createuser -username NAME -password SECRET [-role N]")
	}
	if *role < core.RoleRoot || *role > core.RoleViewer {
		log.Fatalf("invalid role %d", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := core.Open(cfg.Database, core.LogLevelWarn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	user := models.User{
		Username:     *username,
		FullName:     *fullName,
		PasswordHash: core.HashSecret(*password),
		Role:         *role,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("created user %s (id=%d, role=%d)\n", user.Username, user.ID, user.Role)
}
