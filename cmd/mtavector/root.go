package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smallyu/go-mta-tss/internal/crypto/csprng"
	"github.com/smallyu/go-mta-tss/internal/protocol/keygen"
	"github.com/smallyu/go-mta-tss/internal/vectors"
)

const envPrefix = "MTATSS"

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "mtavector",
		Short: "Replay two-party signing test vectors",
		Long: `mtavector runs every record of a vector file through two MtA conversions,
SumMtA, PartialSign and SumS, and compares the result with SIG_S.

Flags may also be set through MTATSS_<FLAG> environment variables,
for example MTATSS_PAILLIER_BITS=2048.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(v.GetString("log-level"))
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVectors(cmd.Context(), v, cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().String("log-level", "info", "logrus level (debug, info, warn, error)")
	root.PersistentFlags().String("seed", "", "hex seed for a deterministic random source; crypto/rand when empty")
	root.Flags().StringP("file", "f", "", "vector file to run")
	root.Flags().IntP("workers", "w", runtime.NumCPU(), "records run concurrently")
	root.Flags().Int("paillier-bits", 2048, "modulus size for records without primes")

	if err := v.BindPFlags(root.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := v.BindPFlags(root.Flags()); err != nil {
		panic(err)
	}

	root.AddCommand(newKeysCmd(v))
	return root
}

func runVectors(ctx context.Context, v *viper.Viper, out io.Writer) error {
	path := v.GetString("file")
	if path == "" {
		return fmt.Errorf("no vector file given, use --file or %s_FILE", envPrefix)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := vectors.Parse(f)
	if err != nil {
		return err
	}
	random, err := randomSource(v)
	if err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"file":    path,
		"records": len(records),
		"workers": v.GetInt("workers"),
	})
	logger.Info("running vectors")

	start := time.Now()
	outcomes, err := vectors.RunAll(ctx, random, records, v.GetInt("workers"), v.GetInt("paillier-bits"))
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		fmt.Fprintf(out, "TEST = %d matched=%t SIG_S = %s\n", o.Test, o.Matched, hex.EncodeToString(o.S))
	}
	logger.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("all vectors passed")
	return nil
}

func newKeysCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate an ECDSA key share",
		RunE: func(cmd *cobra.Command, args []string) error {
			random, err := randomSource(v)
			if err != nil {
				return err
			}

			var kp *keygen.KeyPair
			mnemonic := v.GetString("mnemonic")
			switch {
			case mnemonic != "":
				kp, err = keygen.FromMnemonic(mnemonic, v.GetString("passphrase"))
			case v.GetBool("new-mnemonic"):
				if mnemonic, err = keygen.NewMnemonic(random); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "MNEMONIC = %s\n", mnemonic)
				kp, err = keygen.FromMnemonic(mnemonic, v.GetString("passphrase"))
			default:
				kp, err = keygen.GenerateECDSAKeyPair(random)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "SK = %s\nPK = %s\n",
				hex.EncodeToString(kp.SecretBytes()), hex.EncodeToString(kp.PublicBytes()))
			return nil
		},
	}
	cmd.Flags().String("mnemonic", "", "derive the key from this BIP-39 mnemonic")
	cmd.Flags().String("passphrase", "", "BIP-39 passphrase")
	cmd.Flags().Bool("new-mnemonic", false, "draw a fresh mnemonic and derive the key from it")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func randomSource(v *viper.Viper) (io.Reader, error) {
	seed := v.GetString("seed")
	if seed == "" {
		return rand.Reader, nil
	}
	b, err := hex.DecodeString(seed)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	r, err := csprng.New(b)
	if err != nil {
		return nil, err
	}
	log.Warn("using a deterministic random source")
	return r, nil
}
