// Package main provides a tool to seed the database with demo data.
//
// It creates a demo admin, a handful of member accounts, a small experiment
// catalog with matching artifact files, and access grants, so the hub can be
// exercised locally without clicking through registration.
//
// Usage:
//
//	DATA_PATH=~/VibeLab/data go run ./cmd/seed
//	DATA_PATH=~/VibeLab/data go run ./cmd/seed --wipe  # Recreate demo rows
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vibelabapp/vibelab-server/internal/auth"
	"github.com/vibelabapp/vibelab-server/internal/domain"
	"github.com/vibelabapp/vibelab-server/internal/id"
	"github.com/vibelabapp/vibelab-server/internal/store"
	"github.com/vibelabapp/vibelab-server/internal/store/sqlite"
)

const demoPassword = "password123"

var wipe = flag.Bool("wipe", false, "Delete existing demo rows before seeding")

type demoUser struct {
	email    string
	approved bool
	admin    bool
}

type demoExperiment struct {
	slug     string
	title    string
	desc     string
	isPublic bool
}

var demoUsers = []demoUser{
	{email: "admin@vibelab.test", approved: true, admin: true},
	{email: "alice@vibelab.test", approved: true},
	{email: "bob@vibelab.test", approved: true},
	{email: "pending@vibelab.test", approved: false},
}

var demoExperiments = []demoExperiment{
	{slug: "game-of-life", title: "Game of Life", desc: "Conway's cellular automaton on a canvas.", isPublic: true},
	{slug: "boids", title: "Boids", desc: "Flocking simulation with tweakable steering weights.", isPublic: true},
	{slug: "ray-marcher", title: "Ray Marcher", desc: "Signed distance field renderer, kept private while unfinished.", isPublic: false},
	{slug: "wave-sim", title: "Wave Simulation", desc: "2D wave equation playground.", isPublic: false},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/VibeLab/data")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dbPath := filepath.Join(dataPath, "vibelab.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	ctx := context.Background()

	if *wipe {
		wipeDemoRows(ctx, s)
	}

	users := seedUsers(ctx, s)
	experiments := seedExperiments(ctx, s, dataPath)
	seedGrants(ctx, s, users, experiments)

	fmt.Printf("\nDone. All demo accounts use the password %q.\n", demoPassword)
}

func seedUsers(ctx context.Context, s *sqlite.Store) map[string]*domain.User {
	users := make(map[string]*domain.User, len(demoUsers))

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash demo password: %v\n", err)
		os.Exit(1)
	}

	for _, du := range demoUsers {
		user := &domain.User{
			ID:           id.MustGenerate("user"),
			Email:        du.email,
			PasswordHash: hash,
			IsApproved:   du.approved,
			IsAdmin:      du.admin,
			CreatedAt:    time.Now().UTC(),
		}

		err := s.CreateUser(ctx, user)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			existing, getErr := s.GetUserByEmail(ctx, du.email)
			if getErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to load existing user %s: %v\n", du.email, getErr)
				os.Exit(1)
			}
			fmt.Printf("User already exists: %s\n", du.email)
			users[du.email] = existing
		case err != nil:
			fmt.Fprintf(os.Stderr, "Failed to create user %s: %v\n", du.email, err)
			os.Exit(1)
		default:
			fmt.Printf("Created user: %s (admin=%t approved=%t)\n", du.email, du.admin, du.approved)
			users[du.email] = user
		}
	}

	return users
}

func seedExperiments(ctx context.Context, s *sqlite.Store, dataPath string) map[string]*domain.Experiment {
	artifactRoot := filepath.Join(dataPath, "experiments")
	if err := os.MkdirAll(artifactRoot, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create artifact root: %v\n", err)
		os.Exit(1)
	}

	experiments := make(map[string]*domain.Experiment, len(demoExperiments))

	for _, de := range demoExperiments {
		fileName := de.slug + ".html"
		artifact := filepath.Join(artifactRoot, fileName)
		if _, err := os.Stat(artifact); errors.Is(err, os.ErrNotExist) {
			page := fmt.Sprintf("<!DOCTYPE html>\n<html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>\n",
				de.title, de.title, de.desc)
			if err := os.WriteFile(artifact, []byte(page), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write artifact %s: %v\n", fileName, err)
				os.Exit(1)
			}
		}

		exp := &domain.Experiment{
			ID:          id.MustGenerate("exp"),
			Slug:        de.slug,
			Title:       de.title,
			Description: de.desc,
			FilePath:    fileName,
			IsPublic:    de.isPublic,
			CreatedAt:   time.Now().UTC(),
		}

		err := s.CreateExperiment(ctx, exp)
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			existing, getErr := s.GetExperimentBySlug(ctx, de.slug)
			if getErr != nil {
				fmt.Fprintf(os.Stderr, "Failed to load existing experiment %s: %v\n", de.slug, getErr)
				os.Exit(1)
			}
			fmt.Printf("Experiment already exists: %s\n", de.slug)
			experiments[de.slug] = existing
		case err != nil:
			fmt.Fprintf(os.Stderr, "Failed to create experiment %s: %v\n", de.slug, err)
			os.Exit(1)
		default:
			fmt.Printf("Created experiment: %s (public=%t)\n", de.slug, de.isPublic)
			experiments[de.slug] = exp
		}
	}

	return experiments
}

func seedGrants(ctx context.Context, s *sqlite.Store, users map[string]*domain.User, experiments map[string]*domain.Experiment) {
	// Alice gets the private ray marcher; Bob gets nothing private, so the
	// visibility difference shows up in the hub listing.
	grants := []struct {
		email string
		slug  string
	}{
		{email: "alice@vibelab.test", slug: "ray-marcher"},
	}

	for _, g := range grants {
		user, ok := users[g.email]
		if !ok {
			continue
		}
		exp, ok := experiments[g.slug]
		if !ok {
			continue
		}

		err := s.CreateGrant(ctx, &domain.Grant{
			UserID:       user.ID,
			ExperimentID: exp.ID,
			CreatedAt:    time.Now().UTC(),
		})
		switch {
		case errors.Is(err, store.ErrAlreadyExists):
			fmt.Printf("Grant already exists: %s -> %s\n", g.email, g.slug)
		case err != nil:
			fmt.Fprintf(os.Stderr, "Failed to create grant %s -> %s: %v\n", g.email, g.slug, err)
			os.Exit(1)
		default:
			fmt.Printf("Granted access: %s -> %s\n", g.email, g.slug)
		}
	}
}

func wipeDemoRows(ctx context.Context, s *sqlite.Store) {
	for _, du := range demoUsers {
		user, err := s.GetUserByEmail(ctx, du.email)
		if err != nil {
			continue
		}
		if err := s.DeleteUser(ctx, user.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete user %s: %v\n", du.email, err)
		}
	}
	for _, de := range demoExperiments {
		exp, err := s.GetExperimentBySlug(ctx, de.slug)
		if err != nil {
			continue
		}
		if err := s.DeleteExperiment(ctx, exp.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete experiment %s: %v\n", de.slug, err)
		}
	}
}
