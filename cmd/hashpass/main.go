// Command hashpass prints the bcrypt hash to put in PORTAL_PASSPHRASE_HASH.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"SchoolPortal/api/auth"
)

func main() {
	var passphrase string
	if len(os.Args) > 1 {
		passphrase = strings.Join(os.Args[1:], " ")
	} else {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatal("read passphrase:", err)
		}
		passphrase = strings.TrimRight(line, "\r\n")
	}

	hash, err := auth.HashPassphrase(passphrase)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(hash)
}
