package main

import (
	"oss.terrastruct.com/sketchpad/lib/xmain"
	"oss.terrastruct.com/sketchpad/spcli"
)

func main() {
	xmain.Main(spcli.Run)
}
