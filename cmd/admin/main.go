package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"securechat/backend/internal/config"
	"securechat/backend/internal/models"
	"securechat/backend/internal/storage"
)

const usage = `Usage: admin [-config file] <command> [args]

Commands:
  list-users
  add-user <username> <password>
  delete-user <user_id>
  reset-password <user_id> <password>
  promote <user_id>`

func main() {
	configPath := flag.String("config", "securechat.toml", "path to the TOML config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Storage.Backend == "memory" {
		log.Fatal("the admin CLI needs a persistent storage backend")
	}

	kv, err := storage.OpenKV(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer kv.Close()

	s := storage.NewStorageService(kv, cfg.Storage.Key)
	s.AdminUsername = cfg.Admin.Username
	s.AdminPassword = cfg.Admin.Password

	if err := run(s, args); err != nil {
		kv.Close()
		log.Fatalf("Error: %v", err)
	}
}

var errUsage = errors.New("invalid arguments")

func run(s storage.Storage, args []string) error {
	switch args[0] {
	case "list-users":
		if len(args) != 1 {
			return usageError()
		}
		return listUsers(s)
	case "add-user":
		if len(args) != 3 {
			return usageError()
		}
		return addUser(s, args[1], args[2])
	case "delete-user":
		if len(args) != 2 {
			return usageError()
		}
		return deleteUser(s, args[1])
	case "reset-password":
		if len(args) != 3 {
			return usageError()
		}
		return updateUser(s, args[1], func(u *models.User) { u.Password = args[2] })
	case "promote":
		if len(args) != 2 {
			return usageError()
		}
		return updateUser(s, args[1], func(u *models.User) { u.Role = models.RoleAdmin })
	}
	return usageError()
}

func usageError() error {
	fmt.Fprintln(os.Stderr, usage)
	return errUsage
}

func listUsers(s storage.Storage) error {
	users, err := s.GetUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Printf("%s\t%s\t%s\tonline=%t\t%s\n", u.ID, u.Username, u.Role, u.IsOnline, u.Location)
	}
	return nil
}

func addUser(s storage.Storage, username, password string) error {
	u := models.NewUser(username, password)
	if err := u.Validate(); err != nil {
		return err
	}
	if err := s.AddUser(u); err != nil {
		return err
	}
	fmt.Printf("User %s created with id %s.\n", u.Username, u.ID)
	return nil
}

func deleteUser(s storage.Storage, id string) error {
	u, err := s.GetUser(id)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s not found", id)
	}
	if err := s.DeleteUser(id); err != nil {
		return err
	}
	fmt.Printf("User %s has been deleted.\n", u.Username)
	return nil
}

func updateUser(s storage.Storage, id string, fn func(u *models.User)) error {
	u, err := s.ModifyUser(id, fn)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("user %s not found", id)
	}
	fmt.Printf("User %s has been updated.\n", u.Username)
	return nil
}
