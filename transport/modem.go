package transport

import (
	"encoding/hex"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const modemResponseTimeout = 20 * time.Second

// ModemPort is a transceiver over the SIM interface of an AT modem. APDUs
// are exchanged hex-encoded through AT+CSIM.
type ModemPort struct {
	serial.Port
	Debug bool
}

// OpenModem opens the serial port and brings the modem into a state where
// the SIM interface is usable.
func OpenModem(port string, baudrate int, debug bool) (*ModemPort, error) {
	mode := &serial.Mode{
		BaudRate: baudrate,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}

	s, err := serial.Open(port, mode)
	if err != nil {
		return nil, errors.Wrapf(err, "opening port %s", port)
	}

	mp := &ModemPort{Port: s, Debug: debug}

	// the first command after opening often fails on a stale port buffer,
	// send a throwaway one to flush it
	if _, err := mp.SendAT("AT+CFUN?"); err != nil {
		log.Printf("could not send modem command: %v", err)
	}

	if err := mp.init(); err != nil {
		mp.Port.Close()
		return nil, err
	}

	return mp, nil
}

// init makes sure the modem is online with the radio off, the mode where
// only the SIM interface is active.
func (mp *ModemPort) init() error {
	r, err := mp.SendAT("AT+CFUN?")
	if err == nil && len(r) > 0 && r[0] == "+CFUN: 4" {
		return nil
	}

	for i := 0; i < 10; i++ {
		if _, err := mp.SendAT("AT+CFUN=4,1"); err != nil {
			continue
		}

		r, err := mp.SendAT("AT+CFUN?")
		if err != nil {
			log.Printf("error initializing modem: %v, %v", err, r)
			continue
		}

		for _, n := range r {
			if n == "+CFUN: 4" {
				return nil
			}
		}
	}

	return errors.New("modem did not come online")
}

// SendAT writes an AT command and reads response lines until the modem
// answers OK or ERROR.
func (mp *ModemPort) SendAT(cmd string) ([]string, error) {
	if mp.Debug {
		log.Printf("+++ %s", cmd)
	}

	if _, err := mp.Write([]byte(cmd + "\r\n")); err != nil {
		return nil, err
	}

	buffer := make([]byte, 5)
	matcher := make(chan []string, 1)
	finalizer := make(chan bool, 1)
	go func() {
		crnl := regexp.MustCompile("(\\r+\\n)+")
		pattern := regexp.MustCompile("ERROR|OK")
		response := ""
	loop:
		for {
			select {
			case <-finalizer:
				matcher <- crnl.Split(strings.TrimSpace(response), -1)
				break loop
			default:
				n, err := mp.Read(buffer)
				if err != nil {
					log.Printf("read failed: %v", err)
					matcher <- crnl.Split(strings.TrimSpace(response), -1)
					break loop
				}
				if n > 0 {
					response += string(buffer[0:n])
					if pattern.MatchString(response) {
						matcher <- crnl.Split(strings.TrimSpace(response), -1)
						break loop
					}
				}
			}
		}
	}()

	select {
	case response := <-matcher:
		if mp.Debug {
			for _, l := range response {
				log.Printf("--- %s", l)
			}
		}
		return response, nil
	case <-time.After(modemResponseTimeout):
		finalizer <- true
		response := <-matcher
		return response, errors.New("timeout receiving response")
	}
}

// Transceive sends a raw command APDU through AT+CSIM and returns the raw
// response including the status bytes.
func (mp *ModemPort) Transceive(cmd []byte) ([]byte, error) {
	encoded := strings.ToUpper(hex.EncodeToString(cmd))
	atcmd := fmt.Sprintf("AT+CSIM=%d,\"%s\"", len(encoded), encoded)

	response, err := mp.SendAT(atcmd)
	if err != nil {
		return nil, err
	}

	if len(response) == 0 || response[len(response)-1] != "OK" {
		return nil, errors.Errorf("error executing modem command: %v", response)
	}

	var responseLength int
	var responseData string
	if _, err := fmt.Sscanf(response[0], "+CSIM: %d,%s", &responseLength, &responseData); err != nil {
		return nil, errors.Wrap(err, "parsing +CSIM response")
	}

	responseData = strings.Trim(responseData, "\"")
	if responseLength != len(responseData) {
		return nil, errors.New("response length does not match data size")
	}

	return hex.DecodeString(responseData)
}

// IsConnected reports whether the serial port is open.
func (mp *ModemPort) IsConnected() bool {
	return mp.Port != nil
}

// Close closes the serial port.
func (mp *ModemPort) Close() error {
	return mp.Port.Close()
}
