package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	core "tangle-network/core"
	pkgconfig "tangle-network/pkg/config"
)

// keystore is the on-disk wallet file: base64 Dilithium2 key material.
type keystore struct {
	Algorithm string `yaml:"algorithm"`
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
}

func loadKeystore(path string) (*keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ks keystore
	if err := yaml.Unmarshal(data, &ks); err != nil {
		return nil, err
	}
	if ks.Algorithm != core.SignatureAlgorithm {
		return nil, fmt.Errorf("keystore algorithm %q, want %s", ks.Algorithm, core.SignatureAlgorithm)
	}
	return &ks, nil
}

func main() {
	// Flag defaults follow the node's own YAML config when it resolves;
	// explicit flags always win.
	defaultNode, defaultAPI := "http://localhost:8000/", "tangle"
	if cfg, err := pkgconfig.LoadFromEnv(); err == nil {
		if cfg.Node.ExternalURL != "" {
			defaultNode = cfg.Node.ExternalURL
		}
		if cfg.Node.APIName != "" {
			defaultAPI = cfg.Node.APIName
		}
	}

	rootCmd := &cobra.Command{
		Use:   "wallet",
		Short: "offline wallet for the tangle ledger",
	}
	rootCmd.PersistentFlags().String("node", defaultNode, "node base URL")
	rootCmd.PersistentFlags().String("api", defaultAPI, "node API name")
	rootCmd.PersistentFlags().String("keystore", "wallet.yaml", "keystore file path")

	rootCmd.AddCommand(keygenCmd())
	rootCmd.AddCommand(addressCmd())
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(nonceCmd())
	rootCmd.AddCommand(balanceCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "generate a Dilithium2 key pair and write the keystore",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("keystore")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite existing keystore %s", path)
			}
			pub, priv, err := core.DilithiumKeypair()
			if err != nil {
				return err
			}
			ks := keystore{
				Algorithm: core.SignatureAlgorithm,
				PublicKey: core.Encode(pub),
				SecretKey: core.Encode(priv),
			}
			data, err := yaml.Marshal(&ks)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return err
			}
			fmt.Printf("wrote %s\npublic key: %s\n", path, ks.PublicKey)
			return nil
		},
	}
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "print the wallet's public key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("keystore")
			ks, err := loadKeystore(path)
			if err != nil {
				return err
			}
			fmt.Println(ks.PublicKey)
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "sign a transfer and print the signature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("keystore")
			recipient, _ := cmd.Flags().GetString("recipient")
			amount, _ := cmd.Flags().GetUint64("amount")
			nonce, _ := cmd.Flags().GetUint64("nonce")

			ks, err := loadKeystore(path)
			if err != nil {
				return err
			}
			sig, err := signTransfer(ks, recipient, amount, nonce)
			if err != nil {
				return err
			}
			fmt.Println(sig)
			return nil
		},
	}
	cmd.Flags().String("recipient", "", "recipient public key")
	cmd.Flags().Uint64("amount", 0, "amount in minor units")
	cmd.Flags().Uint64("nonce", 0, "transaction nonce")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "sign and submit a transfer through a node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("keystore")
			recipient, _ := cmd.Flags().GetString("recipient")
			amount, _ := cmd.Flags().GetUint64("amount")
			nonce, _ := cmd.Flags().GetUint64("nonce")

			ks, err := loadKeystore(path)
			if err != nil {
				return err
			}
			client := newNodeClient(cmd)
			if nonce == 0 {
				current, err := client.nonce(ks.PublicKey)
				if err != nil {
					return err
				}
				nonce = current + 1
			}
			sig, err := signTransfer(ks, recipient, amount, nonce)
			if err != nil {
				return err
			}
			tx := core.TransactionCreate{
				Sender:    ks.PublicKey,
				Recipient: recipient,
				Amount:    amount,
				Nonce:     nonce,
				Signature: sig,
			}
			admitted, err := client.postTransaction(tx)
			if err != nil {
				return err
			}
			logrus.Infof("posted: nonce %d, %d minor units to %.12s", nonce, amount, recipient)
			fmt.Println(admitted)
			return nil
		},
	}
	cmd.Flags().String("recipient", "", "recipient public key")
	cmd.Flags().Uint64("amount", 0, "amount in minor units")
	cmd.Flags().Uint64("nonce", 0, "nonce (0 fetches the next one from the node)")
	_ = cmd.MarkFlagRequired("recipient")
	return cmd
}

func nonceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nonce [public-key]",
		Short: "query a wallet's confirmed nonce",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := resolveKey(cmd, args)
			if err != nil {
				return err
			}
			n, err := newNodeClient(cmd).nonce(pk)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [public-key]",
		Short: "query a wallet's balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := resolveKey(cmd, args)
			if err != nil {
				return err
			}
			bal, err := newNodeClient(cmd).balance(pk)
			if err != nil {
				return err
			}
			fmt.Println(bal)
			return nil
		},
	}
	return cmd
}

// resolveKey picks the queried key: the positional argument when given,
// the keystore otherwise.
func resolveKey(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	path, _ := cmd.Flags().GetString("keystore")
	ks, err := loadKeystore(path)
	if err != nil {
		return "", err
	}
	return ks.PublicKey, nil
}

func signTransfer(ks *keystore, recipient string, amount, nonce uint64) (string, error) {
	priv, err := core.Decode(ks.SecretKey)
	if err != nil {
		return "", err
	}
	tx := core.TransactionCreate{
		Sender:    ks.PublicKey,
		Recipient: recipient,
		Amount:    amount,
		Nonce:     nonce,
	}
	sig, err := core.DilithiumSign(priv, tx.SignaturePreimage())
	if err != nil {
		return "", err
	}
	return core.Encode(sig), nil
}

// nodeClient wraps the HTTP calls the wallet makes against a node.
type nodeClient struct {
	base    string
	apiName string
	client  *http.Client
}

func newNodeClient(cmd *cobra.Command) *nodeClient {
	base, _ := cmd.Flags().GetString("node")
	apiName, _ := cmd.Flags().GetString("api")
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &nodeClient{
		base:    base,
		apiName: apiName,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *nodeClient) url(route string) string {
	return fmt.Sprintf("%sapi/v1/%s/%s", c.base, c.apiName, route)
}

func (c *nodeClient) call(route string, body, data any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := c.client.Post(c.url(route), "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var detail struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		return fmt.Errorf("node returned %s: %s", resp.Status, detail.Detail)
	}
	var env struct {
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, data)
}

func (c *nodeClient) nonce(publicKey string) (uint64, error) {
	var n uint64
	err := c.call("wallets/nonce/", map[string]string{"public_key": publicKey}, &n)
	return n, err
}

func (c *nodeClient) balance(publicKey string) (float64, error) {
	var b float64
	err := c.call("wallets/balance/", map[string]string{"public_key": publicKey}, &b)
	return b, err
}

func (c *nodeClient) postTransaction(tx core.TransactionCreate) (string, error) {
	var admitted json.RawMessage
	if err := c.call("transactions/post/", tx, &admitted); err != nil {
		return "", err
	}
	return string(admitted), nil
}
