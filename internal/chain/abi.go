package chain

// timelineABI covers the three contract methods the gateway calls.
const timelineABI = `[
  {
    "type": "function",
    "name": "getFullGraph",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {"name": "ids", "type": "uint256[]"},
      {"name": "links", "type": "string[]"},
      {"name": "plots", "type": "string[]"},
      {"name": "previousIds", "type": "uint256[]"},
      {"name": "nextIds", "type": "uint256[][]"},
      {"name": "canonFlags", "type": "bool[]"}
    ]
  },
  {
    "type": "function",
    "name": "getLeaves",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "uint256[]"}]
  },
  {
    "type": "function",
    "name": "createNode",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "link", "type": "string"},
      {"name": "plot", "type": "string"},
      {"name": "previous", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`
