package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"task-tracker-api/internal/identity"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SeedUser is one entry of a users seed file.
type SeedUser struct {
	ID          string `yaml:"id"`
	Username    string `yaml:"username"`
	DisplayName string `yaml:"displayName"`
	Password    string `yaml:"password"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <users.yaml>",
	Short: "Load users into the identity directory",
	Long: `Create or update the users listed in a YAML file:

  users:
    - id: u-1
      username: alice
      displayName: Alice Doe
      password: change-me`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		users, err := ParseSeedUsers(f)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := seedUsers(cmd.Context(), a.users, users)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users\n", n)
		return nil
	},
}

// ParseSeedUsers decodes and checks a users seed file.
func ParseSeedUsers(r io.Reader) ([]SeedUser, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Users))
	for i, u := range file.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" || u.Password == "" {
			return nil, fmt.Errorf("user #%d: username and password are required", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("user #%d: duplicate username %q", i+1, name)
		}
		seen[name] = struct{}{}
		if u.DisplayName == "" {
			file.Users[i].DisplayName = name
		}
		file.Users[i].Username = name
	}
	return file.Users, nil
}

func seedUsers(ctx context.Context, dir *identity.Directory, users []SeedUser) (int, error) {
	for _, u := range users {
		if _, err := dir.Register(ctx, u.ID, u.Username, u.DisplayName, u.Password); err != nil {
			return 0, fmt.Errorf("seed %s: %w", u.Username, err)
		}
	}
	return len(users), nil
}
