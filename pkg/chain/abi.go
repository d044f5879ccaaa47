package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// CoordinatorABIJSON is the swarm coordinator contract interface consumed
// by this service: peer registration, reward submission and the read-only
// leaderboard/round queries, plus the custom errors the contract reverts
// with.
const CoordinatorABIJSON = `[
  {
    "inputs": [{"internalType": "string", "name": "peerId", "type": "string"}],
    "name": "registerPeer",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "roundNumber", "type": "uint256"},
      {"internalType": "uint256", "name": "stageNumber", "type": "uint256"},
      {"internalType": "uint256", "name": "reward", "type": "uint256"},
      {"internalType": "string", "name": "peerId", "type": "string"}
    ],
    "name": "submitReward",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint256", "name": "start", "type": "uint256"},
      {"internalType": "uint256", "name": "count", "type": "uint256"}
    ],
    "name": "voterLeaderboard",
    "outputs": [
      {"internalType": "address[]", "name": "", "type": "address[]"},
      {"internalType": "uint256[]", "name": "", "type": "uint256[]"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "address[]", "name": "eoas", "type": "address[]"}],
    "name": "getPeerId",
    "outputs": [{"internalType": "string[]", "name": "", "type": "string[]"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "currentRound",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "currentStage",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "string", "name": "peerId", "type": "string"}],
    "name": "PeerIdAlreadyRegistered",
    "type": "error"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "roundNumber", "type": "uint256"}],
    "name": "InvalidRoundNumber",
    "type": "error"
  },
  {
    "inputs": [{"internalType": "uint256", "name": "stageNumber", "type": "uint256"}],
    "name": "InvalidStageNumber",
    "type": "error"
  },
  {
    "inputs": [{"internalType": "string", "name": "peerId", "type": "string"}],
    "name": "RewardAlreadySubmitted",
    "type": "error"
  },
  {
    "inputs": [],
    "name": "PeerNotRegistered",
    "type": "error"
  }
]`

// CoordinatorABI is the parsed contract ABI, shared by the reader and the
// user-operation pipeline.
var CoordinatorABI = mustParseABI(CoordinatorABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("chain: invalid coordinator ABI: " + err.Error())
	}
	return parsed
}
