// Package service holds the business operations of the store. Each service is
// a stateless struct over injected collaborators; all shared state lives in
// PostgreSQL.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/safar/license-store/internal/database"
	"github.com/safar/license-store/internal/notify"
	"github.com/safar/license-store/internal/pricing"
	"github.com/safar/license-store/internal/storage"
	"github.com/sirupsen/logrus"
)

type Deps struct {
	DB         *sql.DB
	Logger     *logrus.Logger
	Notifier   notify.Sender
	Uploader   storage.Uploader
	Rates      pricing.Rates
	AdminEmail string
}

type Services struct {
	Users    *Users
	Products *Products
	Licenses *Licenses
	Wallet   *Wallet
	Promos   *Promos
	Pricing  *Pricing
	Orders   *Orders
	TopUps   *TopUps
	Resets   *Resets
}

func New(d Deps) *Services {
	if d.Rates == nil {
		d.Rates = pricing.DefaultRates()
	}

	txOpts := database.DefaultTxOptions()
	mail := &mailer{sender: d.Notifier, logger: d.Logger}

	licenses := &Licenses{db: d.DB, logger: d.Logger}
	wallet := &Wallet{db: d.DB, logger: d.Logger, rates: d.Rates}
	promos := &Promos{db: d.DB, logger: d.Logger}
	prices := &Pricing{db: d.DB}

	return &Services{
		Users:    &Users{db: d.DB, logger: d.Logger},
		Products: &Products{db: d.DB, logger: d.Logger, uploader: d.Uploader},
		Licenses: licenses,
		Wallet:   wallet,
		Promos:   promos,
		Pricing:  prices,
		Orders: &Orders{
			db:       d.DB,
			logger:   d.Logger,
			uploader: d.Uploader,
			mailer:   mail,
			pricing:  prices,
			licenses: licenses,
			wallet:   wallet,
			promos:   promos,
			txOpts:   txOpts,
		},
		TopUps: &TopUps{
			db:       d.DB,
			logger:   d.Logger,
			uploader: d.Uploader,
			mailer:   mail,
			wallet:   wallet,
			txOpts:   txOpts,
		},
		Resets: &Resets{
			db:         d.DB,
			logger:     d.Logger,
			mailer:     mail,
			adminEmail: d.AdminEmail,
		},
	}
}

// File is an uploaded attachment such as a payment screenshot.
type File struct {
	Name    string
	Content io.Reader
}

func uploadFile(ctx context.Context, uploader storage.Uploader, folder string, f *File) (string, error) {
	if f == nil || uploader == nil {
		return "", nil
	}
	url, err := uploader.Upload(ctx, folder, f.Name, f.Content)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", folder, err)
	}
	return url, nil
}

// mailer sends notifications and swallows failures after logging them.
type mailer struct {
	sender notify.Sender
	logger *logrus.Logger
}

func (m *mailer) send(ctx context.Context, msg notify.Message, buildErr error) {
	if buildErr != nil {
		m.logger.WithError(buildErr).Warn("failed to build notification")
		return
	}
	if m.sender == nil || msg.To == "" {
		return
	}
	if err := m.sender.Send(ctx, msg); err != nil {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"to":      msg.To,
			"subject": msg.Subject,
		}).Warn("failed to send notification")
	}
}
