package main

import (
	"context"
	"fmt"
)

// bcrypt hash version prefixes; anything else is a legacy plaintext credential.
var bcryptPrefixes = [][]byte{[]byte("$2a$"), []byte("$2b$"), []byte("$2y$")}

func isHashed(cred []byte) bool {
	for _, prefix := range bcryptPrefixes {
		if len(cred) >= len(prefix) && string(cred[:len(prefix)]) == string(prefix) {
			return true
		}
	}
	return false
}

// rehashPasswords hashes any credential still stored in plaintext.
// Already-hashed credentials are skipped so re-running is a no-op.
func (cli *commandLine) rehashPasswords() error {
	ctx := context.Background()
	users, err := cli.usrRepo.QueryUsers(ctx, nil)
	if err != nil {
		return err
	}

	var count int
	for _, usr := range users {
		if len(usr.PasswordHash) == 0 || isHashed(usr.PasswordHash) {
			continue
		}
		if err := usr.SetPassword(string(usr.PasswordHash)); err != nil {
			return err
		}
		if _, err := cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return err
		}
		count++
	}
	fmt.Fprintf(cli.stdout(), "rehashed %d password(s)\n", count)
	return nil
}
