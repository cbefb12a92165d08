package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"nullchat/client"
	"nullchat/common"
	"nullchat/configs"
	"nullchat/identity"
	"nullchat/store"
	"nullchat/transport"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg     *configs.Config
	logger  *logrus.Logger
	appCore *client.Core
)

func Execute() error {
	root := &cobra.Command{
		Use:           "nullchat",
		Short:         "Ephemeral end-to-end encrypted chat, paired by QR code",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = configs.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger = common.NewLogger(cfg.LogLevel)

			kv, err := newStore(cfg)
			if err != nil {
				return err
			}
			t, err := newTransport(cfg)
			if err != nil {
				return err
			}
			appCore = client.NewCore(identity.NewManager(kv, logger), t, client.Options{
				Namespace:        cfg.Namespace,
				TTL:              cfg.QRTTL,
				FingerprintBytes: cfg.FingerprintBytes,
				Logger:           logger,
			})
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCore != nil {
				return appCore.Close()
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default ./nullchat.yaml or ~/.nullchat/nullchat.yaml)")
	flags.String("home", "", "data dir (default ~/.nullchat)")
	flags.StringP("passphrase", "p", "", "passphrase protecting the stored identity")
	flags.String("namespace", configs.Namespace, "topic namespace shared by both devices")
	flags.String("transport", configs.TransportWebSocket, "relay transport: ws, redis or memory")
	flags.String("relay-url", configs.RelayURL, "websocket relay url")
	flags.String("redis-addr", configs.RedisAddress, "redis address for the redis transport or store")
	flags.String("store", configs.StoreFile, "identity store: file, redis or memory")
	flags.Duration("qr-ttl", configs.QRTTL, "how long a shared QR code stays valid")
	flags.Int("fingerprint-bytes", configs.FingerprintBytes, "fingerprint length in bytes")
	flags.String("log-level", "info", "log level")

	root.AddCommand(shareCmd(), scanCmd(), identityCmd())
	return root.Execute()
}

func newStore(cfg *configs.Config) (store.KVStore, error) {
	var kv store.KVStore
	switch cfg.Store {
	case configs.StoreFile:
		fs, err := store.NewFileStore(cfg.Home)
		if err != nil {
			return nil, err
		}
		kv = fs
	case configs.StoreRedis:
		kv = store.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	case configs.StoreMemory:
		kv = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Passphrase == "" {
		if cfg.Store != configs.StoreMemory {
			logger.Warn("no passphrase set, identity is stored unencrypted")
		}
		return kv, nil
	}
	return store.NewEncrypted(kv, cfg.Passphrase), nil
}

func newTransport(cfg *configs.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case configs.TransportWebSocket:
		return transport.NewWebSocket(cfg.RelayURL, logger), nil
	case configs.TransportRedis:
		return transport.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), logger), nil
	case configs.TransportMemory:
		logger.Warn("memory transport only reaches this process")
		return transport.NewBroker().Connect(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// interruptible returns a context cancelled by Ctrl-C.
func interruptible(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
