package config

// DefaultVars is the default variables used by the default configuration.
// Any of them can be overridden with an environment variable
// DISPUTEDASH_<VarName> or from a config file.
const DefaultVars = `
L2URL = "http://localhost:9545"
TreeOutputPath = "./data/devnet_tree.json"
OpSuccinctPath = "~/Downloads/op-succinct"
SenderPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
SenderAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
`

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[L2]
URL = "{{L2URL}}"
Timeout = "10s"

[Tree]
OutputPath = "{{TreeOutputPath}}"

[TxSender]
PrivateKey = "{{SenderPrivateKey}}"
To = "{{SenderAddress}}"
ValueWei = 1000000000000000
GasLimit = 21000
TxDelay = "100ms"
WaitForBlocks = "3s"

[CostEstimator]
OpSuccinctPath = "{{OpSuccinctPath}}"
Timeout = "10m"

[CostModel]
CompressedBaseFee = 0.2
CompressedPguPrice = 0.45
PlonkFee = 0.3

[RPC]
Host = "0.0.0.0"
Port = 8000
ReadTimeout = "15s"
WriteTimeout = "0s"
StaticDir = "./static"
`
