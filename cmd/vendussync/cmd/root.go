package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/iurnickita/vendussync/internal/config"
	"github.com/iurnickita/vendussync/internal/lock"
	"github.com/iurnickita/vendussync/internal/logger"
	"github.com/iurnickita/vendussync/internal/service"
	"github.com/iurnickita/vendussync/internal/store"
)

// app - собранные зависимости одной команды
type app struct {
	cfg     config.Config
	zaplog  *zap.Logger
	store   store.Store
	service service.Service
}

func (a *app) Close() {
	a.store.Close()
	a.zaplog.Sync()
}

type root struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
}

func NewRootCmd() *cobra.Command {
	r := &root{v: config.NewViper()}
	return r.command()
}

func (r *root) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vendussync",
		Short: "Sync Vendus POS data and import SAF-T files",
		Long: `vendussync copies Vendus master data and documents into PostgreSQL
and imports Portuguese SAF-T accounting files into the ledger.

Settings come from an optional config file and VENDUSSYNC_* environment
variables, e.g. VENDUSSYNC_VENDUS_API_KEY.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := config.Load(r.v, r.configPath)
			if err != nil {
				return err
			}
			r.cfg = cfg
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&r.configPath, "config", "c", "", "path to the config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	r.v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(r.newServeCmd(), r.newSyncCmd(), r.newSAFTCmd())
	return rootCmd
}

// newApp открывает базу и собирает сервис
func (r *root) newApp(ctx context.Context) (*app, error) {
	zaplog, err := logger.NewZapLog(r.cfg.Logger)
	if err != nil {
		return nil, err
	}

	store, err := store.NewStore(r.cfg.Store)
	if err != nil {
		return nil, err
	}

	service, err := service.NewService(r.cfg.Service, store, lock.NewLocker(r.cfg.Lock), zaplog)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:     r.cfg,
		zaplog:  zaplog,
		store:   store,
		service: service,
	}, nil
}
