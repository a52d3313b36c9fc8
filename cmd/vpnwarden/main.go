// Copyright (C) 2026 vpnwarden Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//

package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"vpnwarden"
	"vpnwarden/transport"
	"vpnwarden/xerr"
)

func main() {
	c := &cobra.Command{
		Use:           "vpnwarden",
		Short:         "VPN host administration console",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	c.Flags().StringP("config", "c", "", "configuration file path")
	if err := c.Execute(); err != nil {
		os.Exit(1)
	}
}
func load(c *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("script", "/root/antizapret/client.sh")
	v.SetDefault("settings", "/etc/vpnwarden/settings.json")
	v.SetDefault("env", "/root/antizapret/.env")
	v.SetDefault("openvpn_dir", "/root/web/openvpn/clients")
	v.SetDefault("client_dir", "/root/antizapret/client")
	v.SetDefault("wg", "/usr/bin/wg")
	v.SetDefault("status_logs", []string{
		"/etc/openvpn/server/logs/vpn-udp-status.log",
		"/etc/openvpn/server/logs/antizapret-udp-status.log",
	})
	v.SetDefault("wg_confs", []string{
		"/etc/wireguard/vpn.conf",
		"/etc/wireguard/antizapret.conf",
	})
	v.SetDefault("interval", "1m")
	v.SetDefault("cooldown", "30m")
	v.SetDefault("log.level", 2)
	v.SetEnvPrefix("VPNWARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if p, _ := c.Flags().GetString("config"); len(p) > 0 {
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("vpnwarden")
		v.SetConfigType("json")
		v.AddConfigPath("/etc/vpnwarden")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var n viper.ConfigFileNotFoundError
		if !errors.As(err, &n) {
			return nil, xerr.Wrap("could not read configuration", err)
		}
	}
	return v, nil
}
func run(c *cobra.Command, _ []string) error {
	v, err := load(c)
	if err != nil {
		return err
	}
	t := v.GetString("token")
	if len(t) == 0 {
		return xerr.New("bot token is not set (token in config or VPNWARDEN_TOKEN)")
	}
	var g vpnwarden.Config
	g.Log.Path, g.Log.Level = v.GetString("log.path"), uint8(v.GetUint32("log.level"))
	g.Audit = v.GetString("audit")
	g.Script = v.GetString("script")
	g.Settings = v.GetString("settings")
	g.Env = v.GetString("env")
	g.OpenVPNDir = v.GetString("openvpn_dir")
	g.ClientDir = v.GetString("client_dir")
	g.WG = v.GetString("wg")
	g.StatusLogs = v.GetStringSlice("status_logs")
	g.WGConfs = v.GetStringSlice("wg_confs")
	g.Interval = v.GetDuration("interval")
	g.Cooldown = v.GetDuration("cooldown")
	if err = v.UnmarshalKey("admins", &g.Admins); err != nil {
		return xerr.Wrap("could not parse admin list", err)
	}
	s := &transport.Telegram{Token: t, API: v.GetString("api")}
	m, err := vpnwarden.New(g, s)
	if err != nil {
		return err
	}
	s.Log = m.Logger()
	return m.Run(context.Background(), s)
}
