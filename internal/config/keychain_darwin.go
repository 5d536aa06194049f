//go:build darwin

package config

import "os/exec"

// keychainExec reads a generic password from the login keychain.
func keychainExec(service, account string) ([]byte, error) {
	return exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
}

// keychainSet creates or updates (-U) a generic password.
func keychainSet(service, account, value string) error {
	return exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).Run()
}
