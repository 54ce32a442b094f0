/*
Package main is the entry point for the Chatify terminal client.

It is responsible for loading configuration, initializing the global logging system,
wiring the REST client, session manager, real-time channel, and conversation
synchronizer together, and running a line-oriented command loop until the user
quits or the process receives an interrupt signal (SIGINT, SIGTERM).
*/
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"chatify/internal/app/api"
	"chatify/internal/app/chat"
	"chatify/internal/app/model"
	"chatify/internal/app/session"
	"chatify/internal/app/socket"
	"chatify/internal/configs"
	"chatify/internal/pkg/auth/token"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/randx"
)

func main() {
	// Load .env if present; real environment variables take precedence.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Str("api_base_url", cfg.APIBaseURL).
		Str("socket_url", cfg.SocketURL).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := token.NewStore(cfg.CredentialPath)

	apiClient := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithTokenSource(tokens.Current),
	)

	sessions := session.NewManager(apiClient, tokens)

	// Resolve any stored credential before prompting.
	sessions.CheckSession(ctx)

	user := sessions.Identity()
	if user == nil {
		user = authenticate(ctx, sessions)
		if user == nil {
			return
		}
	}

	fmt.Printf("Signed in as %s\n", user.FullName)

	deviceID, err := randx.DeviceID()
	if err != nil {
		logx.Fatal(err, "Failed to generate device id")
	}

	channel := socket.NewChannel(socket.Config{
		URL:               cfg.SocketURL,
		UserID:            user.ID,
		DeviceID:          deviceID,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectDelayMax: cfg.ReconnectDelayMax,
	})

	if err := channel.Connect(ctx); err != nil {
		logx.Logger().Warn().Err(err).Msg("Real-time channel unavailable. Continuing without live events.")
	}

	conv := chat.NewSynchronizer(apiClient, channel)
	conv.Start(user.ID)

	// Print inbound messages from the active conversation as they arrive.
	// Snapshots land from both the REPL goroutine and the channel's dispatch
	// goroutine, so the cursor is guarded.
	var printMu sync.Mutex
	printed := 0
	cancelWatch := conv.Subscribe(func(st chat.State) {
		printMu.Lock()
		defer printMu.Unlock()
		for ; printed < len(st.Messages); printed++ {
			printMessage(st.Messages[printed], user.ID, st.SelectedUser)
		}
	})
	resetPrinted := func() {
		printMu.Lock()
		printed = 0
		printMu.Unlock()
	}

	runCommandLoop(ctx, sessions, conv, resetPrinted)

	cancelWatch()
	channel.UnsubscribeAll()
	channel.Close()

	logx.Info("Client stopped.")
}

// authenticate runs the login/signup prompt loop. It returns nil when the user
// gives up or the context ends.
func authenticate(ctx context.Context, sessions *session.Manager) *model.User {
	in := bufio.NewScanner(os.Stdin)

	for ctx.Err() == nil {
		fmt.Print("login, signup, or quit? ")
		if !in.Scan() {
			return nil
		}

		switch strings.TrimSpace(in.Text()) {
		case "login":
			email := prompt(in, "email: ")
			password := prompt(in, "password: ")
			if cerr := sessions.Login(ctx, email, password); cerr != nil {
				fmt.Printf("login failed: %s\n", cerr.Message)
				continue
			}
			return sessions.Identity()

		case "signup":
			fullName := prompt(in, "full name: ")
			email := prompt(in, "email: ")
			password := prompt(in, "password: ")
			confirm := prompt(in, "confirm password: ")
			if cerr := sessions.Signup(ctx, fullName, email, password, confirm); cerr != nil {
				fmt.Printf("signup failed: %s\n", cerr.Message)
				continue
			}
			return sessions.Identity()

		case "quit":
			return nil
		}
	}

	return nil
}

// runCommandLoop reads commands from stdin until quit, logout, EOF, or interrupt.
// resetPrinted rewinds the message-printing cursor when the conversation changes.
func runCommandLoop(ctx context.Context, sessions *session.Manager, conv *chat.Synchronizer, resetPrinted func()) {
	in := bufio.NewScanner(os.Stdin)

	// listed is whichever user list was printed last; open <n> indexes into it.
	var listed []model.User

	fmt.Println("commands: contacts | chats | open <n> | close | send <text> | logout | quit")

	for ctx.Err() == nil {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}

		line := strings.TrimSpace(in.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "contacts":
			if cerr := conv.LoadContacts(ctx); cerr != nil {
				fmt.Printf("error: %s\n", cerr.Message)
				continue
			}
			listed = conv.Snapshot().Contacts
			printUsers(conv.Snapshot(), listed)

		case "chats":
			if cerr := conv.LoadChatPartners(ctx); cerr != nil {
				fmt.Printf("error: %s\n", cerr.Message)
				continue
			}
			listed = conv.Snapshot().Chats
			printUsers(conv.Snapshot(), listed)

		case "open":
			user, ok := pickUser(listed, arg)
			if !ok {
				fmt.Println("open expects a number from the last list; run contacts or chats first")
				continue
			}
			resetPrinted()
			if cerr := conv.SelectConversation(ctx, user); cerr != nil {
				fmt.Printf("error: %s\n", cerr.Message)
			}

		case "close":
			resetPrinted()
			conv.SelectConversation(ctx, nil)

		case "send":
			st := conv.Snapshot()
			if st.SelectedUser == nil {
				fmt.Println("no conversation open; run open <n> first")
				continue
			}
			if cerr := conv.Send(ctx, st.SelectedUser.ID, arg, ""); cerr != nil {
				fmt.Printf("error: %s\n", cerr.Message)
			}

		case "logout":
			sessions.Logout(ctx)
			conv.Reset()
			return

		case "quit":
			return

		case "":

		default:
			fmt.Println("commands: contacts | chats | open <n> | close | send <text> | logout | quit")
		}
	}
}

// pickUser resolves a 1-based index argument against the last printed list.
func pickUser(listed []model.User, arg string) (*model.User, bool) {
	idx, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || idx < 1 || idx > len(listed) {
		return nil, false
	}
	return &listed[idx-1], true
}

// prompt prints a label and reads one trimmed line.
func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

// printUsers lists users with presence and typing markers.
func printUsers(st chat.State, users []model.User) {
	if len(users) == 0 {
		fmt.Println("(none)")
		return
	}

	for i, u := range users {
		marker := " "
		if st.Online(u.ID) {
			marker = "*"
		}
		suffix := ""
		if st.Typing(u.ID) {
			suffix = " (typing)"
		}
		fmt.Printf("%2d %s %s%s\n", i+1, marker, u.FullName, suffix)
	}
}

// printMessage renders one message line, labeling the viewer's own messages.
func printMessage(msg model.Message, selfID string, partner *model.User) {
	from := "them"
	if msg.SentBy(selfID) {
		from = "you"
	} else if partner != nil {
		from = partner.FullName
	}

	body := msg.Text
	if body == "" && msg.Image != "" {
		body = "[image]"
	}

	fmt.Printf("[%s] %s\n", from, body)
}
