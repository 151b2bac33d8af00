package main

import (
	"chat-desk/domain"
	"chat-desk/repositories"
	"cmp"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=WARN"`
	Colours        bool   `env:"INSPECT_COLOURS,default=true"`
}

// maxDetail keeps long contents on one line of the table.
const maxDetail = 60

func main() {
	user := flag.Uint64("user", 0, "Only show the conversation of this identity id (0 = whole feed)")
	limit := flag.Int("limit", 50, "Most recent messages to show")
	identities := flag.Bool("identities", false, "List identities instead of messages")
	flag.Parse()

	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// Another process (the desk) may hold the directory lock.
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	logger.Debug("Database opened read-only", "path", config.BadgerFilepath, "identities", *identities)

	if *identities {
		err = printIdentities(db)
	} else {
		var ownerID *uint64
		if *user != 0 {
			ownerID = user
		}
		err = printMessages(db, ownerID, *limit, config.Colours)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

// printIdentities scans the identity records directly: a read-only database cannot lease
// the id sequence a repository takes on construction.
func printIdentities(db *badger.DB) error {
	var all []domain.Identity
	prefix := repositories.IdentityPrefix()
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				identity, err := repositories.DecodeIdentity(v)
				if err != nil {
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				all = append(all, identity)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.SortFunc(all, func(a, b domain.Identity) int {
		return cmp.Compare(a.ID, b.ID)
	})

	table := newTable([]string{"ID", "Anonymous key", "Address", "Created"})
	for _, identity := range all {
		table.Append([]string{
			strconv.FormatUint(identity.ID, 10),
			identity.AnonymousKey,
			identity.ClientAddress,
			identity.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return nil
}

// printMessages walks the log backwards the same way the repository does, without
// going through the sequence lease a writable repository would take.
func printMessages(db *badger.DB, ownerID *uint64, limit int, colours bool) error {
	var messages []domain.Message
	prefix := repositories.MessagePrefix(ownerID)
	err := db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(slices.Clone(prefix), 0xFF)); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				message, err := repositories.DecodeMessage(v)
				if err != nil {
					fmt.Printf("Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slices.Reverse(messages)

	table := newTable([]string{"ID", "Owner", "Role", "Kind", "Time", "Detail"})
	for _, m := range messages {
		table.Append([]string{
			strconv.FormatUint(m.ID, 10),
			strconv.FormatUint(m.OwnerID, 10),
			roleLabel(m.SenderRole, colours),
			string(m.ContentKind),
			m.CreatedAt.Format("15:04:05"),
			detail(m),
		})
	}
	table.Render()
	return nil
}

func roleLabel(role domain.SenderRole, colours bool) string {
	if !colours {
		return string(role)
	}
	switch role {
	case domain.RoleUser:
		return color.New(color.FgGreen).Render(string(role))
	case domain.RoleAssistant:
		return color.New(color.FgCyan).Render(string(role))
	case domain.RoleOperator:
		return color.New(color.FgYellow, color.OpBold).Render(string(role))
	default:
		return string(role)
	}
}

func detail(m domain.Message) string {
	text := m.Content
	if text == "" {
		text = m.AttachmentRef
	}
	text = strings.ReplaceAll(text, "\n", " ")
	if r := []rune(text); len(r) > maxDetail {
		text = string(r[:maxDetail]) + "..."
	}
	return text
}
