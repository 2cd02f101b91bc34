package ledger

import (
	"fmt"
	"sort"
)

// Network identifies an EVM chain by its chain selector name.
type Network struct {
	Name          string
	ChainSelector uint64
	ChainID       int64
	IsTestnet     bool
	ExplorerURL   string
}

// TxURL returns the block explorer link for hash, or "" when the network has
// no explorer.
func (n Network) TxURL(hash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return n.ExplorerURL + "/tx/" + hash
}

var networks = []Network{
	{Name: "ethereum-mainnet", ChainSelector: 5009297550715157269, ChainID: 1, ExplorerURL: "https://etherscan.io"},
	{Name: "ethereum-testnet-sepolia", ChainSelector: 16015286601757825753, ChainID: 11155111, IsTestnet: true, ExplorerURL: "https://sepolia.etherscan.io"},
	{Name: "ethereum-testnet-sepolia-arbitrum-1", ChainSelector: 3478487238524512106, ChainID: 421614, IsTestnet: true, ExplorerURL: "https://sepolia.arbiscan.io"},
	{Name: "ethereum-testnet-sepolia-base-1", ChainSelector: 10344971235874465080, ChainID: 84532, IsTestnet: true, ExplorerURL: "https://sepolia.basescan.org"},
	{Name: "ethereum-testnet-sepolia-optimism-1", ChainSelector: 5224473277236331295, ChainID: 11155420, IsTestnet: true, ExplorerURL: "https://sepolia-optimism.etherscan.io"},
	{Name: "avalanche-testnet-fuji", ChainSelector: 14767482510784806043, ChainID: 43113, IsTestnet: true, ExplorerURL: "https://testnet.snowtrace.io"},
	{Name: "polygon-testnet-amoy", ChainSelector: 16281711391670634445, ChainID: 80002, IsTestnet: true, ExplorerURL: "https://amoy.polygonscan.com"},
}

// GetNetwork resolves a chain selector name. The testnet flag must match the
// registry entry.
func GetNetwork(name string, isTestnet bool) (Network, error) {
	for _, n := range networks {
		if n.Name == name && n.IsTestnet == isTestnet {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("network not found for chain selector name: %s", name)
}

// NetworkNames lists the registered chain selector names in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, n.Name)
	}
	sort.Strings(names)
	return names
}
