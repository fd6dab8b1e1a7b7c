package bot

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

const CredentialsFile = "client.xml"

// Server is the part of the server configuration a bot needs to join.
type Server struct {
	Name      string
	Address   string
	Port      int
	QueryPort int
	Mod       string
}

// Config is the identity of one bot slot. Nickname and CDKey change only on
// rotation, Server.Mod only when the server switches mods.
type Config struct {
	Basename string
	Password string
	Slot     int
	Server   Server
	Dir      string
	Nickname string
	CDKey    string
}

// NewConfig creates the config of a slot with a fresh identity. The working
// directory is <runningDir>/<server>/<slot>.
func NewConfig(basename, password string, slot int, server Server, runningDir string) Config {
	return Config{
		Basename: basename,
		Password: password,
		Slot:     slot,
		Server:   server,
		Dir:      filepath.Join(runningDir, server.Name, strconv.Itoa(slot)),
		Nickname: NextNickname(basename, ""),
		CDKey:    NewCDKey(),
	}
}

type credentials struct {
	XMLName xml.Name          `xml:"bf2bot"`
	Server  credentialsServer `xml:"server"`
}

type credentialsServer struct {
	Address string            `xml:"address,attr"`
	Port    int               `xml:"port,attr"`
	Mod     string            `xml:"mod,attr"`
	Client  credentialsClient `xml:"client"`
}

type credentialsClient struct {
	Nickname string `xml:"nickname,attr"`
	Password string `xml:"password,attr"`
	CDKey    string `xml:"cdkey,attr"`
}

// WriteCredentials rewrites client.xml in the working directory.
func (c Config) WriteCredentials() error {
	content, err := xml.MarshalIndent(credentials{
		Server: credentialsServer{
			Address: c.Server.Address,
			Port:    c.Server.Port,
			Mod:     c.Server.Mod,
			Client: credentialsClient{
				Nickname: c.Nickname,
				Password: c.Password,
				CDKey:    c.CDKey,
			},
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credentials: %w", err)
	}

	tmp := filepath.Join(c.Dir, CredentialsFile+".tmp")
	if err := os.WriteFile(tmp, append([]byte(xml.Header), content...), 0600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}

	if err := os.Rename(tmp, filepath.Join(c.Dir, CredentialsFile)); err != nil {
		return fmt.Errorf("rename credentials: %w", err)
	}

	return nil
}

// Setup creates the working directory, hard links the resource binaries into
// it and writes the credentials.
func (c Config) Setup(resourceDir string, binaries []string) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return fmt.Errorf("create working dir: %w", err)
	}

	for _, name := range binaries {
		target := filepath.Join(c.Dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", target, err)
		}

		if err := os.Link(filepath.Join(resourceDir, name), target); err != nil {
			return fmt.Errorf("link %s: %w", name, err)
		}
	}

	return c.WriteCredentials()
}

// CopyResources copies binaries from a mounted resource directory into a local
// one, hard links cannot cross mounts.
func CopyResources(src, dst string, binaries []string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("create resource dir: %w", err)
	}

	for _, name := range binaries {
		if err := copyFile(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
