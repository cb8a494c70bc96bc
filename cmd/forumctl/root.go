package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/pribylovaa/go-blog-forum/internal/client"
	"github.com/pribylovaa/go-blog-forum/internal/i18n"
	logx "github.com/pribylovaa/go-blog-forum/internal/pkg/log"
)

// envDefaults — значения флагов по умолчанию из окружения.
type envDefaults struct {
	Addr      string `env:"FORUM_ADDR" env-default:"localhost:50060"`
	Token     string `env:"FORUM_TOKEN"`
	TokenFile string `env:"FORUM_TOKEN_FILE"`
	Lang      string `env:"FORUM_LANG" env-default:"en"`
}

// app — общее состояние команд: флаги и соединение с forum-service.
type app struct {
	addr      string
	token     string
	tokenFile string
	lang      string
	timeout time.Duration
	verbose bool

	dial   []grpc.DialOption
	log    *slog.Logger
	client *client.Client
	tr     *i18n.Catalog
}

func newRootCmd() *cobra.Command {
	return (&app{}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	var env envDefaults
	_ = cleanenv.ReadEnv(&env)

	root := &cobra.Command{
		Use:   "forumctl",
		Short: "Console client for forum-service",
		Long: `Console client for forum-service.

Reads are live subscriptions: with --watch the list is reprinted on every change.
The access token is taken from --token or FORUM_TOKEN; get one with "forumctl login".`,
		SilenceUsage:      true,
		PersistentPreRunE: a.connect,
		PersistentPostRun: func(*cobra.Command, []string) { a.close() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.addr, "addr", env.Addr, "forum-service gRPC address")
	flags.StringVar(&a.token, "token", env.Token, "access token")
	flags.StringVar(&a.tokenFile, "token-file", env.TokenFile, "read the access token from a file when --token is empty")
	flags.StringVar(&a.lang, "lang", env.Lang, "message language (en, ru)")
	flags.DurationVar(&a.timeout, "timeout", 10*time.Second, "call and subscribe timeout")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.blogsCmd(),
		a.deleteBlogCmd(),
		a.postCmd(),
		a.commentCmd(),
		a.deleteCommentCmd(),
		a.privateCommentCmd(),
	)

	return root
}

func (a *app) connect(cmd *cobra.Command, _ []string) error {
	env := logx.EnvProd
	if a.verbose {
		env = logx.EnvLocal
	}
	a.log = logx.Setup(env, cmd.ErrOrStderr())
	a.tr = i18n.New(a.lang)

	if a.token == "" && a.tokenFile != "" {
		raw, err := os.ReadFile(a.tokenFile)
		if err != nil {
			return fmt.Errorf("read token file: %w", err)
		}
		a.token = strings.TrimSpace(string(raw))
	}

	c, err := client.New(client.Options{
		Addr:        a.addr,
		Token:       a.token,
		CallTimeout: a.timeout,
		Logger:      a.log,
		DialOptions: a.dial,
	})
	if err != nil {
		return err
	}

	a.client = c

	return nil
}

func (a *app) close() {
	if a.client != nil {
		_ = a.client.Close()
		a.client = nil
	}
}

func (a *app) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

// failure добавляет к ошибке сообщение представления, если оно есть.
func failure(msg string, err error) error {
	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
