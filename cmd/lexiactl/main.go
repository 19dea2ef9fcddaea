// Command lexiactl queries and exports monitoring records offline.
package main

import _ "time/tzdata"

func main() {
	Execute()
}
