package main

import "fmt"

// Plain ASCII only, so it renders on 80-column terminals and DOS-era
// consoles alike.
const banner = `
  ====================================================================
  |                                                                  |
  |       ##### ##### ##### ##### #####  #    #   #                 |
  |       #   # #       #   #   # #   #  #    ## ##                 |
  |       ##### ###     #   ##### #   #  #    # # #                 |
  |       #  #  #       #   #  #  #   #  #    #   #                 |
  |       #   # #####   #   #   # #####  #### #   #                 |
  |                                                                  |
  ====================================================================

             >> RETRO VIBES LOADED - ENTER THE MATRIX <<
                        [##########] 100%

`

func printBanner() {
	fmt.Print(banner)
}
