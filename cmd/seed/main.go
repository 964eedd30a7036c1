package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-management/config"
	"github.com/oksasatya/go-ddd-user-management/internal/application"
	"github.com/oksasatya/go-ddd-user-management/internal/container"
	"github.com/oksasatya/go-ddd-user-management/internal/domain/domainerr"
	"github.com/oksasatya/go-ddd-user-management/pkg/helpers"
)

type demoUser struct {
	Email    string
	Name     string
	Password string
	Active   bool
}

var demoUsers = []demoUser{
	{Email: "admin@example.com", Name: "Demo Admin", Password: "password123", Active: true},
	{Email: "ana@example.com", Name: "Ana Souza", Password: "password123", Active: true},
	{Email: "bob@example.com", Name: "Bob Martin", Password: "password123"},
	{Email: "carla@example.com", Name: "Carla Mendes", Password: "password123"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	app, err := container.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build application")
	}
	defer app.Close()

	created, err := seed(ctx, app.Users, demoUsers, logger)
	if err != nil {
		logger.WithError(err).Fatal("seed failed")
	}
	logger.WithFields(logrus.Fields{"created": created, "store": cfg.StoreDriver}).Info("seed finished")
}

// seed creates the users that do not exist yet. Reruns are no-ops.
func seed(ctx context.Context, svc *application.Service, users []demoUser, logger *logrus.Logger) (int, error) {
	created := 0
	for _, du := range users {
		u, err := svc.CreateUser(ctx, application.CreateUserInput{Email: du.Email, Name: du.Name, Password: du.Password})
		if errors.Is(err, domainerr.ErrConflict) {
			logger.WithField("email", du.Email).Info("user already seeded")
			continue
		}
		if err != nil {
			return created, err
		}
		if du.Active && !u.IsActive() {
			if _, err := svc.ActivateUser(ctx, u.ID().String()); err != nil {
				return created, err
			}
		}
		created++
		logger.WithFields(logrus.Fields{"id": u.ID().String(), "email": du.Email}).Info("seeded user")
	}
	return created, nil
}
