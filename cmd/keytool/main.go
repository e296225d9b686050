// Command keytool manages encrypted signing keys in the local secret store.
//
//	keytool encrypt                      print the EncryptedSecret JSON for a key
//	keytool import -name desk            encrypt a key and store it under a name
//	keytool import -name desk -api-key K also register it as a gateway account
//	keytool show-address -name desk      decrypt a stored key and print its address
//	keytool list                         list stored secret names
//
// The private key is read from HLGATE_PRIVATE_KEY or the first line of stdin.
// The password is read from HLGATE_VAULT_PASSWORD or the next stdin line;
// -server uses HLGATE_VAULT_SERVER_KEY instead.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/repository"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/hlgate/hlgate/internal/vault"
	"github.com/joho/godotenv"
)

const (
	envPrivateKey = "HLGATE_PRIVATE_KEY"
	envPassword   = "HLGATE_VAULT_PASSWORD"
	envServerKey  = "HLGATE_VAULT_SERVER_KEY"
	envStorePath  = "HLGATE_SECRETS_PATH"
)

func main() {
	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "keytool:", err)
		os.Exit(1)
	}
}

type tool struct {
	in     *bufio.Reader
	out    io.Writer
	getenv func(string) string
}

func run(args []string, stdin io.Reader, stdout io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		return errors.New("usage: keytool encrypt|import|show-address|list [flags]")
	}
	t := &tool{in: bufio.NewReader(stdin), out: stdout, getenv: getenv}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	storePath := fs.String("store", orDefault(getenv(envStorePath), "./data/secrets"), "badger store directory")
	name := fs.String("name", "", "secret name")
	server := fs.Bool("server", false, "encrypt under the server key instead of a password")
	apiKey := fs.String("api-key", "", "register the key as a gateway account with this API key")
	accountName := fs.String("account-name", "", "display name for the registered account")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch args[0] {
	case "encrypt":
		enc, _, err := t.encrypt(*server)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, enc.String())
		return nil
	case "import":
		if *name == "" {
			return errors.New("-name is required")
		}
		enc, addr, err := t.encrypt(*server)
		if err != nil {
			return err
		}
		store, err := repository.OpenBadgerStore(repository.BadgerOptions{Path: *storePath})
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.PutSecret(*name, enc.String()); err != nil {
			return err
		}
		if *apiKey != "" {
			mode := model.KeyModePassword
			if *server {
				mode = model.KeyModeServer
			}
			acct := &model.Account{
				ID:        uuid.NewString(),
				Name:      orDefault(*accountName, *name),
				APIKey:    *apiKey,
				Address:   addr,
				Secret:    enc.String(),
				KeyMode:   mode,
				CreatedAt: time.Now().UTC(),
			}
			if err := store.Create(context.Background(), acct); err != nil {
				return err
			}
			fmt.Fprintf(t.out, "account %s registered\n", acct.ID)
		}
		fmt.Fprintf(t.out, "%s stored as %q\n", addr, *name)
		return nil
	case "show-address":
		if *name == "" {
			return errors.New("-name is required")
		}
		store, err := repository.OpenBadgerStore(repository.BadgerOptions{Path: *storePath})
		if err != nil {
			return err
		}
		defer store.Close()
		raw, ok, err := store.GetSecret(*name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no secret named %q", *name)
		}
		enc, err := vault.ParseEncryptedSecret(raw)
		if err != nil {
			return err
		}
		addr, err := t.decryptAddress(enc, *server)
		if err != nil {
			return err
		}
		fmt.Fprintln(t.out, addr)
		return nil
	case "list":
		store, err := repository.OpenBadgerStore(repository.BadgerOptions{Path: *storePath})
		if err != nil {
			return err
		}
		defer store.Close()
		names, err := store.ListSecrets()
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(t.out, n)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// encrypt reads a key, checks it parses and seals it. The raw bytes are
// wiped before returning.
func (t *tool) encrypt(server bool) (*vault.EncryptedSecret, string, error) {
	raw, err := t.secretInput(envPrivateKey)
	if err != nil {
		return nil, "", fmt.Errorf("read private key: %w", err)
	}
	defer vault.Wipe(raw)

	key, err := signer.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", err
	}
	addr := signer.Address(key).Hex()
	signer.Zeroize(key)

	var enc *vault.EncryptedSecret
	if server {
		v, err := vault.New(t.getenv(envServerKey))
		if err != nil {
			return nil, "", err
		}
		enc, err = v.EncryptWithServerKey(raw)
		if err != nil {
			return nil, "", err
		}
	} else {
		password, err := t.password()
		if err != nil {
			return nil, "", err
		}
		if enc, err = vault.Encrypt(raw, password); err != nil {
			return nil, "", err
		}
	}
	return enc, addr, nil
}

func (t *tool) decryptAddress(enc *vault.EncryptedSecret, server bool) (string, error) {
	var (
		raw []byte
		err error
	)
	if server {
		v, verr := vault.New(t.getenv(envServerKey))
		if verr != nil {
			return "", verr
		}
		raw, err = v.DecryptWithServerKey(enc)
	} else {
		password, perr := t.password()
		if perr != nil {
			return "", perr
		}
		raw, err = vault.Decrypt(enc, password)
	}
	if err != nil {
		return "", err
	}
	defer vault.Wipe(raw)

	key, err := signer.ParsePrivateKey(raw)
	if err != nil {
		return "", err
	}
	defer signer.Zeroize(key)
	return signer.Address(key).Hex(), nil
}

func (t *tool) password() (string, error) {
	raw, err := t.secretInput(envPassword)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("password is empty")
	}
	return string(raw), nil
}

func (t *tool) secretInput(env string) ([]byte, error) {
	if v := t.getenv(env); v != "" {
		return []byte(strings.TrimSpace(v)), nil
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	return []byte(strings.TrimSpace(line)), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
