package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/lomocoin/nextouch-sdk-go/globalplatform"
	"github.com/lomocoin/nextouch-sdk-go/transport"
)

type closer interface {
	Close() error
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the configuration file")
		applet     = flag.String("applet", "keycard", "applet to manage: keycard or u2f")
		capPath    = flag.String("cap", "", "path to the CAP file to load")
		doDelete   = flag.Bool("delete", false, "delete the applet and its package from the card")
		doInstall  = flag.Bool("install", false, "load the CAP file and install the applet")
		doInfo     = flag.Bool("info", false, "print the card identity")
		ndefRecord = flag.String("ndef", "", "hex encoded initial NDEF record")
		u2fParams  = flag.String("params", "", "hex encoded U2F applet parameters")
		debug      = flag.Bool("debug", false, "enable extended debug output")
	)
	flag.Parse()

	log.Println("NExTouch card installer")

	if !*doDelete && !*doInstall && !*doInfo {
		log.Println("nothing to do, pass -delete, -install or -info")
		flag.Usage()
		os.Exit(0)
	}

	conf := Config{}
	if err := conf.load(*configPath); err != nil {
		log.Fatalf("loading configuration failed: %v", err)
	}
	if *debug {
		conf.Debug = true
	}

	t, c, err := connect(conf)
	if err != nil {
		log.Fatalf("connecting to card failed: %v", err)
	}
	//noinspection GoUnhandledErrorResult
	defer c.Close()

	keys, err := cardKeys(conf)
	if err != nil {
		log.Fatalf("reading card keys failed: %v", err)
	}

	channel := globalplatform.NewNormalChannel(t)
	channel.Debug = conf.Debug

	cs := globalplatform.NewCommandSet(channel)
	cs.Debug = conf.Debug
	if keys != nil {
		cs.SetSCP02Keys(keys)
	}

	if err := cs.Select(); err != nil {
		log.Fatalf("selecting card manager failed: %v", err)
	}

	if err := cs.OpenSecureChannel(); err != nil {
		log.Fatalf("opening secure channel failed: %v", err)
	}

	if *doInfo {
		info(cs)
	}

	if *doDelete {
		remove(cs, *applet)
	}

	if *doInstall {
		install(cs, *applet, *capPath, *ndefRecord, *u2fParams)
	}
}

func connect(conf Config) (globalplatform.Transmitter, closer, error) {
	switch conf.Transport {
	case TransportPCSC:
		r, err := transport.ConnectPCSC(conf.Reader)
		if err != nil {
			return nil, nil, err
		}
		r.Debug = conf.Debug
		return r, r, nil
	case TransportGoCard:
		log.Println("waiting for card...")
		r, err := transport.ConnectGoCard()
		if err != nil {
			return nil, nil, err
		}
		r.Debug = conf.Debug
		return r, r, nil
	case TransportModem:
		m, err := transport.OpenModem(conf.Port, conf.Baudrate, conf.Debug)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", conf.Transport)
	}
}

// cardKeys returns the static SCP02 keys from the configuration, prompting
// for the missing ones. Returns nil when nothing is configured or entered,
// leaving the default test keys in place.
func cardKeys(conf Config) (*globalplatform.SCP02Keys, error) {
	encKey, err := readKey("ENC", conf.EncKey)
	if err != nil {
		return nil, err
	}

	macKey, err := readKey("MAC", conf.MacKey)
	if err != nil {
		return nil, err
	}

	if encKey == nil && macKey == nil {
		log.Println("no card keys configured, using test keys")
		return nil, nil
	}

	if encKey == nil || macKey == nil {
		return nil, fmt.Errorf("both ENC and MAC keys must be set")
	}

	return globalplatform.NewSCP02Keys(encKey, macKey, encKey), nil
}

func readKey(name, configured string) ([]byte, error) {
	value := configured
	if value == "" {
		fmt.Printf("%s key (hex, empty for test key): ", name)
		entered, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, err
		}
		value = string(entered)
	}

	if value == "" {
		return nil, nil
	}

	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("key must be hex encoded: %w", err)
	}
	if len(key) != 16 {
		return nil, fmt.Errorf("key must be 16 bytes, got %d", len(key))
	}

	return key, nil
}

func info(cs *globalplatform.CommandSet) {
	cplc, err := cs.GetCPLC()
	if err != nil {
		log.Fatalf("reading card identity failed: %v", err)
	}

	log.Printf("card unique identifier: %s", cplc.CardUniqueIdentifier())
	log.Printf("card UUID: %s", cplc.UUID().String())
}

func remove(cs *globalplatform.CommandSet, applet string) {
	var err error
	switch applet {
	case "keycard":
		err = cs.DeleteKeycardInstancesAndPackage()
	case "u2f":
		err = cs.DeleteU2FAppletAndPackage()
	default:
		log.Fatalf("unknown applet %q, must be keycard or u2f", applet)
	}

	if err != nil {
		log.Fatalf("deleting %s failed: %v", applet, err)
	}
	log.Printf("%s deleted", applet)
}

func install(cs *globalplatform.CommandSet, applet, capPath, ndefRecord, u2fParams string) {
	if capPath == "" {
		log.Fatalf("-install requires -cap")
	}

	capFile, err := os.Open(capPath)
	if err != nil {
		log.Fatalf("opening CAP file failed: %v", err)
	}
	//noinspection GoUnhandledErrorResult
	defer capFile.Close()

	cb := func(loaded, total int) {
		log.Printf("loaded block %d of %d", loaded, total)
	}

	switch applet {
	case "keycard":
		if err := cs.LoadKeycardPackage(capFile, cb); err != nil {
			log.Fatalf("loading package failed: %v", err)
		}

		record, err := hex.DecodeString(ndefRecord)
		if err != nil {
			log.Fatalf("invalid NDEF record: %v", err)
		}
		if err := cs.InstallNDEFApplet(record); err != nil {
			log.Fatalf("installing NDEF applet failed: %v", err)
		}
		if err := cs.InstallKeycardApplet(); err != nil {
			log.Fatalf("installing Keycard applet failed: %v", err)
		}
	case "u2f":
		if err := cs.LoadU2FPackage(capFile, cb); err != nil {
			log.Fatalf("loading package failed: %v", err)
		}

		params, err := hex.DecodeString(u2fParams)
		if err != nil {
			log.Fatalf("invalid U2F parameters: %v", err)
		}
		if err := cs.InstallU2FApplet(params); err != nil {
			log.Fatalf("installing U2F applet failed: %v", err)
		}
	default:
		log.Fatalf("unknown applet %q, must be keycard or u2f", applet)
	}

	log.Printf("%s installed", applet)
}
