// Package main запускает кассовый терминал мясной лавки.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mango070919/MeatDepotApp-sub001/internal/config"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/handler"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/model"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/printer"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/repository"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/scale"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/serialport"
	"github.com/Mango070919/MeatDepotApp-sub001/internal/terminal"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}
	defer repo.Close()

	profile := model.BusinessProfile{
		Name:           cfg.BusinessName,
		Address:        cfg.BusinessAddress,
		Phone:          cfg.BusinessPhone,
		ReceiptFooter:  cfg.ReceiptFooter,
		CurrencySymbol: cfg.CurrencySymbol,
	}

	scaleLink := scale.NewLink(cfg.ScalePortName, serialport.Open, logger)
	defer scaleLink.Close()

	printerDriver := printer.NewDriver(cfg.PrinterPortName, serialport.Open, logger)
	defer printerDriver.Close()

	// Устройства подключаются по возможности: терминал обязан работать
	// и без весов, и без принтера — оператор переподключит их с экрана.
	if err := scaleLink.Connect(); err != nil {
		sugar.Warnw("scale not connected", "error", err.Error())
	}
	if err := printerDriver.Connect(); err != nil {
		sugar.Warnw("printer not connected", "error", err.Error())
	}

	coordinator := terminal.NewCoordinator(repo, repo, scaleLink, printerDriver, profile, logger)

	h := handler.NewHandler(coordinator, repo, scaleLink, printerDriver, cfg.CurrencySymbol, logger)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Запуск HTTP-сервера экрана кассира
	g.Go(func() error {
		sugar.Infow("starting pos terminal", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down terminal...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("terminal stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
