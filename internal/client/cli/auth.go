package cli

import (
	"context"
	"log"
	"os"

	"github.com/taskvault/taskvault/internal/common"
	"github.com/taskvault/taskvault/internal/cryptox"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing; they point at the interactive input helpers.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username and passphrase and creates the account.
// The salt is generated locally and stored server-side so other devices
// can derive the same master key; only a verifier of the key leaves the
// machine.
func (a *App) Register(ctx context.Context) {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	passphrase, err := getPassword(os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	defer common.WipeByteArray(passphrase)

	salt := common.GenerateRandByteArray(16)
	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	if err := a.remote.Register(ctx, userName, salt, cryptox.MakeVerifier(key)); err != nil {
		log.Printf("Registration failed: %s", err.Error())
		return
	}
	log.Println("Registered. Now log in.")
}

// Login authenticates against the server, unlocks the keyring and installs
// the bearer token on both transports.
func (a *App) Login(ctx context.Context) {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	passphrase, err := getPassword(os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	defer common.WipeByteArray(passphrase)

	salt, err := a.remote.GetSalt(ctx, userName)
	if err != nil {
		log.Printf("Login failed: %s", err.Error())
		return
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(key)

	token, err := a.remote.Login(ctx, userName, cryptox.MakeVerifier(key))
	if err != nil {
		log.Printf("Login failed: %s", err.Error())
		return
	}

	a.ring.Put(userName, key)
	a.ws.SetAccessToken(token)
	a.userName = userName
	log.Println("Login successful")
}

// Logout stops watching, forgets the key and the username. Local data
// stays on disk, encrypted.
func (a *App) Logout(ctx context.Context) {
	a.stopWatch()
	if a.userName != "" {
		a.ring.Forget(a.userName)
	}
	a.userName = ""
	a.ws.SetAccessToken("")
}
