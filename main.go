package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"

	"github.com/Adarsh-Kmt/FairGroupMutex/handler"
	"github.com/Adarsh-Kmt/FairGroupMutex/tracing"
	"github.com/Adarsh-Kmt/FairGroupMutex/util"
	"github.com/gookit/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultConfigPath = "fair-group-mutex.ini"
	version           = "0.1.0"
)

func printBanner() {
	banner := `
 ███████████            ███            █████████                                       
░░███░░░░░░█           ░░░            ███░░░░░███                                      
 ░███   █ ░   ██████   ████  ████████ ███     ░░░  ████████   ██████  █████ ████ ████████ 
 ░███████    ░░░░░███ ░░███ ░░███░░███░███         ░░███░░███ ███░░███░░███ ░███ ░░███░░███
 ░███░░░█     ███████  ░███  ░███ ░░░ ░███    █████ ░███ ░░░ ░███ ░███ ░███ ░███  ░███ ░███
 ░███  ░     ███░░███  ░███  ░███     ░░███  ░░███  ░███     ░███ ░███ ░███ ░███  ░███ ░███
 █████      ░░████████ █████ █████     ░░█████████  █████    ░░██████  ░░████████ ░███████ 
░░░░░        ░░░░░░░░ ░░░░░ ░░░░░       ░░░░░░░░░  ░░░░░      ░░░░░░    ░░░░░░░░  ░███░░░  
                                                                                  ░███     
                                                                                  █████    
                                                                                 ░░░░░     
`
	color.Green.Println(banner)
	fmt.Printf("two-group fair mutex simulation, running on %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {

	printBanner()

	logger := configureLogger()

	err := run()
	if err != nil {
		zap.S().Errorf("error while running simulation: %s", err.Error())
	}

	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func configureLogger() *zap.Logger {

	var config zap.Config

	if len(os.Getenv("DEBUG")) > 0 {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	zap.ReplaceGlobals(logger)

	return logger
}

func run() error {

	// interruptContext stops the workers when the user enters Ctrl + C.
	interruptContext, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := loadConfig()

	if err != nil {
		return err
	}

	if cfg.TraceFile != "" {
		if err := tracing.Init("fair-group-mutex", version, cfg.TraceFile); err != nil {
			return err
		}
	}

	if cfg.JWTSecret != "" {
		token, httpErr := util.GenerateJwtToken(cfg.JWTSecret, "status-viewer")
		if httpErr != nil {
			return errors.New(httpErr.Error)
		}
		zap.S().Infof("status API token: %s", token)
	}

	sim, err := handler.ConfigureSimulation(cfg, os.Stdout)

	if err != nil {
		return err
	}

	return sim.Run(interruptContext)
}

// loadConfig reads the file named by FAIR_GROUP_MUTEX_CONFIG. Only the default file may be absent.
func loadConfig() (handler.SimulationConfig, error) {

	cfgFilePath := util.EnvOrDefault("FAIR_GROUP_MUTEX_CONFIG", defaultConfigPath)

	cfg, err := handler.LoadSimulationConfig(cfgFilePath)

	if errors.Is(err, fs.ErrNotExist) && cfgFilePath == defaultConfigPath {
		zap.S().Infof("no %s found, using built-in defaults", defaultConfigPath)
		return handler.DefaultSimulationConfig(), nil
	}

	return cfg, err
}
